package provider

import (
	"fmt"

	apperrors "github.com/yourusername/hosting-api/internal/pkg/errors"
)

// Registry хранит сконфигурированные OAuth-провайдеры по имени
type Registry struct {
	providers map[string]Provider
}

// NewRegistry регистрирует переданные провайдеры. Имена должны быть уникальны.
func NewRegistry(list ...Provider) *Registry {
	m := make(map[string]Provider, len(list))
	for _, p := range list {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// Get возвращает провайдера по имени
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown oauth provider %q", apperrors.ErrNotFound, name)
	}
	return p, nil
}

// Names возвращает имена всех зарегистрированных провайдеров
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
