package admin

import "github.com/UkralStul/yatube-api/internal/storage"

// EmptyValue - то, что админка проекта показывает вместо пустых значений.
const EmptyValue = "-пусто-"

// Registrations - настройки админки для всех моделей проекта.
var Registrations = map[Model]ModelAdmin{
	ModelPost: {
		ListDisplay:       []string{"pk", "text", "pub_date", "author", "group"},
		ListDisplayLinks:  []string{"text", "author"},
		ListEditable:      []string{"group"},
		ListFilter:        []string{"pub_date", "group"},
		SearchFields:      []string{"text"},
		EmptyValueDisplay: EmptyValue,
	},
	ModelGroup: {
		ListDisplay:       []string{"pk", "title", "slug", "description"},
		ListDisplayLinks:  []string{"title"},
		ListEditable:      []string{"slug"},
		EmptyValueDisplay: EmptyValue,
	},
	// Текст комментария можно править прямо в списке
	ModelComment: {
		ListDisplay:       []string{"pk", "text", "author", "post", "created"},
		ListDisplayLinks:  []string{"pk"},
		ListEditable:      []string{"text"},
		EmptyValueDisplay: EmptyValue,
	},
	// Показываем, кто на кого подписан
	ModelFollow: {
		ListDisplay: []string{"pk", "user", "author"},
	},
}

// Default создает сайт и регистрирует все модели проекта.
func Default(store storage.Storage, opts ...Option) (*Site, error) {
	site := NewSite(store, opts...)
	for _, model := range []Model{ModelPost, ModelGroup, ModelComment, ModelFollow} {
		if err := site.Register(model, Registrations[model]); err != nil {
			return nil, err
		}
	}
	return site, nil
}
