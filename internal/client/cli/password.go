package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// PasswordEnv переменная окружения с паролем игрока
const PasswordEnv = "GOPHPROGRESS_PASSWORD"

// PasswordSources откуда брать пароль, кроме окружения и prompt
type PasswordSources struct {
	FromFile string
	FromArgs string
}

func (p *PasswordSources) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.FromFile, "password-file", "", "read password from file")
	cmd.Flags().StringVar(&p.FromArgs, "password", "", "password (visible in process list, prefer --password-file)")
}

// readPassword берёт пароль по приоритету:
// переменная окружения, файл, флаг, затем интерактивный ввод
func (a *App) readPassword(prompt string) (string, error) {
	if env := os.Getenv(PasswordEnv); env != "" {
		return env, nil
	}

	if a.passwords.FromFile != "" {
		content, err := os.ReadFile(a.passwords.FromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		password := strings.TrimSpace(string(content))
		if password == "" {
			return "", fmt.Errorf("password file is empty")
		}
		return password, nil
	}

	if a.passwords.FromArgs != "" {
		return a.passwords.FromArgs, nil
	}

	password, err := a.io.ReadPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return password, nil
}

// readUsername берёт username из аргумента или спрашивает
func (a *App) readUsername(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	username, err := a.io.ReadInput("Username: ")
	if err != nil {
		return "", fmt.Errorf("failed to read username: %w", err)
	}
	return username, nil
}
