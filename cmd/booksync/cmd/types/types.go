package types

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"booksync/internal/app/server"
)

type contextKey string

// AppKey ключ собранного приложения в контексте команды
const AppKey contextKey = "booksync_app"

// WithApp кладет приложение в контекст
func WithApp(ctx context.Context, app *server.App) context.Context {
	return context.WithValue(ctx, AppKey, app)
}

// App достает приложение из контекста команды
func App(cmd *cobra.Command) (*server.App, error) {
	app, ok := cmd.Context().Value(AppKey).(*server.App)
	if !ok || app == nil {
		return nil, fmt.Errorf("приложение не инициализировано")
	}
	return app, nil
}
