package admin

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/UkralStul/yatube-api/internal/dataloader"
	"github.com/UkralStul/yatube-api/internal/domain"
	"github.com/UkralStul/yatube-api/internal/storage"
)

// DateTimeLayout - формат дат в списках.
const DateTimeLayout = "2006-01-02 15:04"

// Значения фильтров по дате публикации и по группе.
const (
	DateAny         = "any"
	DateToday       = "today"
	DatePast7Days   = "past_7_days"
	DateThisMonth   = "this_month"
	DateThisYear    = "this_year"
	GroupFilterNone = "none"
)

// Query - параметры списка записей.
type Query struct {
	Search  string
	Filters map[string]string
	Limit   int
	Offset  int
}

// Changelist - отрендеренный список записей.
type Changelist struct {
	Model   Model
	Columns []string
	Rows    []Row
}

// Row - строка списка.
type Row struct {
	PK    string
	Cells []Cell
}

// Cell - значение одной колонки.
type Cell struct {
	Field    string
	Value    string
	Link     bool
	Editable bool
}

// value откладывает вычисление ячейки, пока лоадеры собирают пачку.
// ok == false означает пустое значение.
type value func() (v string, ok bool, err error)

func text(s string) value {
	return func() (string, bool, error) { return s, s != "", nil }
}

func userValue(th func() (*domain.User, error)) value {
	return func() (string, bool, error) {
		u, err := th()
		if err != nil {
			return "", false, err
		}
		return u.String(), true, nil
	}
}

// Changelist возвращает записи модели в порядке по умолчанию, по колонкам list_display.
func (s *Site) Changelist(ctx context.Context, model Model, q Query) (*Changelist, error) {
	ma, err := s.lookup(model)
	if err != nil {
		return nil, err
	}
	if q.Search != "" && len(ma.SearchFields) == 0 {
		return nil, fmt.Errorf("%w: search is not enabled for %s", ErrUnsupportedQuery, model)
	}
	for f := range q.Filters {
		if !slices.Contains(ma.ListFilter, f) {
			return nil, fmt.Errorf("%w: %s cannot be filtered by %q", ErrUnsupportedQuery, model, f)
		}
	}

	ctx = dataloader.Attach(ctx, s.store)
	page := storage.Page{Limit: q.Limit, Offset: q.Offset}

	var records []map[string]value
	switch model {
	case ModelPost:
		records, err = s.postRecords(ctx, q, page)
	case ModelGroup:
		records, err = s.groupRecords(ctx, q, page)
	case ModelComment:
		records, err = s.commentRecords(ctx, q, page)
	case ModelFollow:
		records, err = s.followRecords(ctx, q, page)
	}
	if err != nil {
		return nil, err
	}

	links := ma.links()
	cl := &Changelist{Model: model, Columns: ma.ListDisplay, Rows: make([]Row, 0, len(records))}
	for _, rec := range records {
		pk, _, _ := rec["pk"]()
		row := Row{PK: pk, Cells: make([]Cell, 0, len(ma.ListDisplay))}
		for _, f := range ma.ListDisplay {
			v, ok, err := rec[f]()
			if err != nil {
				return nil, fmt.Errorf("render %s %s.%s: %w", model, pk, f, err)
			}
			if !ok {
				v = ma.EmptyValueDisplay
			}
			row.Cells = append(row.Cells, Cell{
				Field:    f,
				Value:    v,
				Link:     slices.Contains(links, f),
				Editable: slices.Contains(ma.ListEditable, f),
			})
		}
		cl.Rows = append(cl.Rows, row)
	}
	return cl, nil
}

func (s *Site) postRecords(ctx context.Context, q Query, page storage.Page) ([]map[string]value, error) {
	filter := storage.PostFilter{Page: page, Search: q.Search}
	if v, ok := q.Filters["pub_date"]; ok {
		since, err := s.since(v)
		if err != nil {
			return nil, err
		}
		filter.Since = since
	}
	if v, ok := q.Filters["group"]; ok {
		if v == GroupFilterNone {
			filter.WithoutGroup = true
		} else {
			filter.GroupID = v
		}
	}
	if v, ok := q.Filters["author"]; ok {
		filter.AuthorID = v
	}

	posts, err := s.store.GetPosts(ctx, filter)
	if err != nil {
		return nil, err
	}

	loaders := dataloader.For(ctx)
	records := make([]map[string]value, 0, len(posts))
	for _, p := range posts {
		group := text("")
		if p.GroupID != nil {
			th := loaders.LoadGroup(ctx, *p.GroupID)
			group = func() (string, bool, error) {
				g, err := th()
				if err != nil {
					return "", false, err
				}
				return g.String(), true, nil
			}
		}
		image := text("")
		if p.Image != nil {
			image = text(*p.Image)
		}
		records = append(records, map[string]value{
			"pk":       text(p.ID),
			StrField:   text(p.String()),
			"text":     text(p.Text),
			"pub_date": text(p.PubDate.Format(DateTimeLayout)),
			"author":   userValue(loaders.LoadUser(ctx, p.AuthorID)),
			"group":    group,
			"image":    image,
		})
	}
	return records, nil
}

func (s *Site) groupRecords(ctx context.Context, q Query, page storage.Page) ([]map[string]value, error) {
	groups, err := s.store.GetGroups(ctx, storage.GroupFilter{Page: page, Search: q.Search})
	if err != nil {
		return nil, err
	}

	records := make([]map[string]value, 0, len(groups))
	for _, g := range groups {
		records = append(records, map[string]value{
			"pk":          text(g.ID),
			StrField:      text(g.String()),
			"title":       text(g.Title),
			"slug":        text(g.Slug),
			"description": text(g.Description),
		})
	}
	return records, nil
}

func (s *Site) commentRecords(ctx context.Context, q Query, page storage.Page) ([]map[string]value, error) {
	comments, err := s.store.GetComments(ctx, storage.CommentFilter{
		Page:     page,
		PostID:   q.Filters["post"],
		AuthorID: q.Filters["author"],
	})
	if err != nil {
		return nil, err
	}

	loaders := dataloader.For(ctx)
	records := make([]map[string]value, 0, len(comments))
	for _, c := range comments {
		post := loaders.LoadPost(ctx, c.PostID)
		records = append(records, map[string]value{
			"pk":      text(c.ID),
			StrField:  text(c.String()),
			"text":    text(c.Text),
			"author":  userValue(loaders.LoadUser(ctx, c.AuthorID)),
			"created": text(c.Created.Format(DateTimeLayout)),
			"post": func() (string, bool, error) {
				p, err := post()
				if err != nil {
					return "", false, err
				}
				return p.String(), true, nil
			},
		})
	}
	return records, nil
}

func (s *Site) followRecords(ctx context.Context, q Query, page storage.Page) ([]map[string]value, error) {
	follows, err := s.store.GetFollows(ctx, storage.FollowFilter{
		Page:     page,
		UserID:   q.Filters["user"],
		AuthorID: q.Filters["author"],
		Search:   q.Search,
	})
	if err != nil {
		return nil, err
	}

	// Подписки приходят с загруженными пользователями, лоадеры не нужны
	records := make([]map[string]value, 0, len(follows))
	for _, f := range follows {
		user, author := f.UserID, f.AuthorID
		if f.User != nil {
			user = f.User.String()
		}
		if f.Author != nil {
			author = f.Author.String()
		}
		records = append(records, map[string]value{
			"pk":     text(f.ID),
			StrField: text(f.String()),
			"user":   text(user),
			"author": text(author),
		})
	}
	return records, nil
}

// since переводит значение фильтра по дате в нижнюю границу pub_date.
func (s *Site) since(v string) (time.Time, error) {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch v {
	case DateAny, "":
		return time.Time{}, nil
	case DateToday:
		return today, nil
	case DatePast7Days:
		return today.AddDate(0, 0, -7), nil
	case DateThisMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), nil
	case DateThisYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), nil
	}
	return time.Time{}, fmt.Errorf("%w: unknown pub_date filter %q", ErrUnsupportedQuery, v)
}
