package services

import (
	"errors"
	"sort"
	"strings"

	"blog/store"
)

var (
	// ErrNotFound - сущность не найдена (пост, пользователь, группа)
	ErrNotFound = store.ErrNotFound
	// ErrAuthRequired - операция требует авторизованного пользователя
	ErrAuthRequired = errors.New("authentication required")
	// ErrInvalidCredentials - неверный логин или пароль
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError - ошибки формы по полям
type ValidationError struct {
	Fields map[string]string `json:"fields"`
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

func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = message
	}
}

// OrNil возвращает nil, если ошибок не набралось
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}
