package storage

import (
	"context"
	"fmt"

	"golang.org/x/exp/slog"

	"booksync/internal/config"
	"booksync/internal/domain/ratelimit"
	"booksync/internal/domain/reconcile"
	"booksync/internal/domain/sync"
	"booksync/internal/infrastructure/migration"
	"booksync/internal/infrastructure/storage/postgres"
	"booksync/internal/infrastructure/storage/sqlite"
)

// OptionRepository хранилище ключ-значение для учетных данных и настроек
type OptionRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Storage набор репозиториев поверх выбранного драйвера
type Storage struct {
	Options OptionRepository
	States  sync.StateRepository
	Reports reconcile.Repository
	Counter ratelimit.Counter

	ping  func(ctx context.Context) error
	close func() error
}

// Open открывает хранилище по cfg.DB.Driver и применяет миграции
func Open(cfg *config.Config, log *slog.Logger) (*Storage, error) {
	switch cfg.DB.Driver {
	case config.StoragePostgres:
		db, err := postgres.New(cfg, migration.DefaultEngine)
		if err != nil {
			return nil, err
		}
		return &Storage{
			Options: postgres.NewOptionRepository(db, log),
			States:  postgres.NewStateRepository(db, log),
			Reports: postgres.NewReportRepository(db, log),
			Counter: postgres.NewRateCounter(db),
			ping:    db.Ping,
			close:   db.Close,
		}, nil
	case config.StorageSQLite:
		db, err := sqlite.New(cfg, migration.DefaultEngine)
		if err != nil {
			return nil, err
		}
		return &Storage{
			Options: sqlite.NewOptionRepository(db),
			States:  sqlite.NewStateRepository(db),
			Reports: sqlite.NewReportRepository(db),
			Counter: sqlite.NewRateCounter(db),
			ping:    db.Ping,
			close:   db.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.DB.Driver)
	}
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

func (s *Storage) Close() error {
	return s.close()
}
