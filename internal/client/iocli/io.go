// Package iocli ввод-вывод интерактивных команд клиента
package iocli

// IO консоль команды: вывод, построчный ввод и ввод пароля без эха
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
	Write(p []byte) (n int, err error)
}
