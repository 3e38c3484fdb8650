package domain

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
)

var (
	validate  = validator.New(validator.WithRequiredStructEnabled())
	slugRegex = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

func init() {
	// Имена полей в ошибках берем из json-тегов.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugRegex.MatchString(fl.Field().String())
	})
}

var messages = map[string]string{
	"required":   "this field is required",
	"max":        "ensure this field has no more than %s characters",
	"slug":       "enter a valid slug consisting of letters, numbers, underscores or hyphens",
	"startswith": "value must start with %q",
}

// ValidationError содержит сообщения об ошибках по именам полей.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validate проверяет запись по validate-тегам. Возвращает *ValidationError
// или nil.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	ve := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		ve.Fields[fe.Field()] = message(fe)
	}
	return ve
}

func message(fe validator.FieldError) string {
	msg, ok := messages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("failed on %q", fe.Tag())
	}
	if strings.Contains(msg, "%") {
		return fmt.Sprintf(msg, fe.Param())
	}
	return msg
}

// SlugFromTitle строит slug из названия группы с транслитерацией,
// обрезая его до допустимой длины.
func SlugFromTitle(title string) string {
	s := slug.Make(title)
	if len(s) > GroupSlugMaxLen {
		s = strings.TrimRight(s[:GroupSlugMaxLen], "-")
	}
	return s
}
