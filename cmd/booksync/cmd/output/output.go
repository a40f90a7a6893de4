package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	// JSON печатать результаты в формате JSON вместо текста
	JSON bool

	out io.Writer = os.Stdout

	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	failColor = color.New(color.FgRed)
	keyColor  = color.New(color.FgCyan)
)

// SetWriter перенаправляет вывод, используется в тестах
func SetWriter(w io.Writer) {
	out = w
}

func Success(format string, args ...any) {
	okColor.Fprintf(out, "✓ "+format+"\n", args...)
}

func Warn(format string, args ...any) {
	warnColor.Fprintf(out, "⚠ "+format+"\n", args...)
}

func Fail(format string, args ...any) {
	failColor.Fprintf(out, "✗ "+format+"\n", args...)
}

// Field строка ключ: значение
func Field(key string, value any) {
	keyColor.Fprintf(out, "  %-18s", key+":")
	fmt.Fprintf(out, " %v\n", value)
}

// Result печатает v как JSON в режиме JSON и возвращает true, иначе ничего не делает
func Result(v any) (bool, error) {
	if !JSON {
		return false, nil
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return true, enc.Encode(v)
}
