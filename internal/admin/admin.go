// Package admin описывает, какие поля моделей видны и редактируемы в
// админке, и выполняет операции админки поверх storage.Storage:
// список записей (changelist), правку поля из списка и удаление.
package admin

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/UkralStul/yatube-api/internal/storage"
	"github.com/sirupsen/logrus"
)

// Model - имя зарегистрированной модели.
type Model string

const (
	ModelPost    Model = "post"
	ModelGroup   Model = "group"
	ModelComment Model = "comment"
	ModelFollow  Model = "follow"
)

// DefaultEmptyValueDisplay показывается вместо пустых значений,
// если у ModelAdmin не задан свой вариант.
const DefaultEmptyValueDisplay = "-"

// StrField - колонка со строковым представлением записи.
const StrField = "__str__"

var (
	ErrNotRegistered        = errors.New("model is not registered")
	ErrAlreadyRegistered    = errors.New("model is already registered")
	ErrImproperlyConfigured = errors.New("improperly configured")
	ErrNotEditable          = errors.New("field is not editable")
	ErrUnsupportedQuery     = errors.New("unsupported query")
)

// ModelAdmin - настройки отображения модели в админке.
type ModelAdmin struct {
	ListDisplay       []string
	ListDisplayLinks  []string
	ListEditable      []string
	ListFilter        []string
	SearchFields      []string
	EmptyValueDisplay string
}

// links возвращает колонки-ссылки. По умолчанию ссылкой служит первая колонка.
func (ma *ModelAdmin) links() []string {
	if len(ma.ListDisplayLinks) > 0 {
		return ma.ListDisplayLinks
	}
	return ma.ListDisplay[:1]
}

// schema - то, что админка знает о полях модели.
type schema struct {
	fields     []string
	editable   []string
	filterable []string
	searchable []string
}

var schemas = map[Model]schema{
	ModelPost: {
		fields:     []string{"pk", "text", "pub_date", "author", "group", "image"},
		editable:   []string{"text", "group", "image"},
		filterable: []string{"pub_date", "group", "author"},
		searchable: []string{"text"},
	},
	ModelGroup: {
		fields:     []string{"pk", "title", "slug", "description"},
		editable:   []string{"title", "slug", "description"},
		searchable: []string{"title"},
	},
	ModelComment: {
		fields:     []string{"pk", "text", "author", "post", "created"},
		editable:   []string{"text"},
		filterable: []string{"post", "author"},
	},
	ModelFollow: {
		fields:     []string{"pk", "user", "author"},
		filterable: []string{"user", "author"},
		searchable: []string{"author"},
	},
}

// Site - реестр ModelAdmin и точка входа для операций админки.
type Site struct {
	store      storage.Storage
	now        func() time.Time
	log        logrus.FieldLogger
	emptyValue string
	registry   map[Model]*ModelAdmin
}

// Option настраивает Site.
type Option func(*Site)

// WithClock подменяет источник времени для фильтров по дате.
func WithClock(now func() time.Time) Option {
	return func(s *Site) { s.now = now }
}

// WithLogger задает логгер для журнала изменений.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Site) { s.log = log }
}

// WithEmptyValueDisplay меняет пустое значение по умолчанию для всего сайта.
func WithEmptyValueDisplay(v string) Option {
	return func(s *Site) { s.emptyValue = v }
}

// NewSite создает пустой сайт админки.
func NewSite(store storage.Storage, opts ...Option) *Site {
	s := &Site{
		store:      store,
		now:        func() time.Time { return time.Now().UTC() },
		log:        logrus.StandardLogger(),
		emptyValue: DefaultEmptyValueDisplay,
		registry:   make(map[Model]*ModelAdmin),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register проверяет настройки и регистрирует модель.
func (s *Site) Register(model Model, ma ModelAdmin) error {
	sc, ok := schemas[model]
	if !ok {
		return fmt.Errorf("%w: unknown model %q", ErrImproperlyConfigured, model)
	}
	if _, ok := s.registry[model]; ok {
		return fmt.Errorf("%s: %w", model, ErrAlreadyRegistered)
	}
	if err := check(model, sc, &ma); err != nil {
		return err
	}
	if ma.EmptyValueDisplay == "" {
		ma.EmptyValueDisplay = s.emptyValue
	}
	s.registry[model] = &ma
	return nil
}

// Registered возвращает зарегистрированные модели по алфавиту.
func (s *Site) Registered() []Model {
	models := make([]Model, 0, len(s.registry))
	for m := range s.registry {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i] < models[j] })
	return models
}

// ModelAdmin возвращает настройки зарегистрированной модели.
func (s *Site) ModelAdmin(model Model) (ModelAdmin, error) {
	ma, err := s.lookup(model)
	if err != nil {
		return ModelAdmin{}, err
	}
	return *ma, nil
}

func (s *Site) lookup(model Model) (*ModelAdmin, error) {
	ma, ok := s.registry[model]
	if !ok {
		return nil, fmt.Errorf("%s: %w", model, ErrNotRegistered)
	}
	return ma, nil
}

// check повторяет системные проверки ModelAdmin.
func check(model Model, sc schema, ma *ModelAdmin) error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", ErrImproperlyConfigured, model, fmt.Sprintf(format, args...))
	}

	if len(ma.ListDisplay) == 0 {
		ma.ListDisplay = []string{StrField}
	}
	for _, f := range ma.ListDisplay {
		if f != StrField && !slices.Contains(sc.fields, f) {
			return fail("list_display refers to unknown field %q", f)
		}
	}
	for _, f := range ma.ListDisplayLinks {
		if !slices.Contains(ma.ListDisplay, f) {
			return fail("list_display_links refers to %q, which is not in list_display", f)
		}
	}
	links := ma.links()
	for _, f := range ma.ListEditable {
		switch {
		case !slices.Contains(ma.ListDisplay, f):
			return fail("list_editable refers to %q, which is not in list_display", f)
		case slices.Contains(links, f):
			if len(ma.ListDisplayLinks) == 0 {
				return fail("list_editable refers to the first field in list_display (%q), which cannot be used unless list_display_links is set", f)
			}
			return fail("list_editable refers to %q, which is also in list_display_links", f)
		case !slices.Contains(sc.editable, f):
			return fail("list_editable refers to %q, which is not editable", f)
		}
	}
	for _, f := range ma.ListFilter {
		if !slices.Contains(sc.filterable, f) {
			return fail("list_filter refers to %q, which is not a filterable field", f)
		}
	}
	for _, f := range ma.SearchFields {
		if !slices.Contains(sc.searchable, f) {
			return fail("search_fields refers to %q, which is not a searchable field", f)
		}
	}
	return nil
}
