package auth

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// AuthCmd - родительская команда для подключения к Zoho Books
var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Подключение к Zoho Books",
	Long:  `Сохранение учетных данных OAuth и обмен grant code.`,
}

// prompt читает строку, если значение не передано флагом
func prompt(label, value string) string {
	if value != "" {
		return value
	}
	fmt.Print(label + ": ")
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(line)
}

// promptSecret читает секрет без эха, если stdin терминал
func promptSecret(label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return prompt(label, ""), nil
	}
	fmt.Print(label + ": ")
	secret, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("ошибка чтения %s: %w", label, err)
	}
	return strings.TrimSpace(string(secret)), nil
}
