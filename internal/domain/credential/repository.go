package credential

import "context"

// Repository хранилище опций ключ-значение
type Repository interface {
	// Get возвращает значение и признак наличия ключа
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
