package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// Регистрация драйвера sqlite3
	_ "github.com/mattn/go-sqlite3"

	"booksync/internal/config"
	"booksync/internal/infrastructure/migration"
)

// Storage однопользовательское хранилище в файле sqlite
type Storage struct {
	db *sql.DB
}

// New применяет миграции и открывает базу
func New(cfg *config.Config, engine migration.MigrationEngine) (*Storage, error) {
	if err := migration.NewMigration(cfg, engine).Up(); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DB.SQLitePath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия базы данных: %w", err)
	}
	// sqlite допускает одного писателя
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}
	return &Storage{db: db}, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) DB() *sql.DB {
	return s.db
}
