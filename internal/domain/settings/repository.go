package settings

import "context"

// Repository хранилище опций ключ-значение
type Repository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}
