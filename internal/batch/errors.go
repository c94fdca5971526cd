package batch

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyBatch  = errors.New("nenhum registro enviado")
	ErrTooManyRows = errors.New("limite de registros por importação excedido")
)

// ValidationError carries every row-level violation found in a batch.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%d erro(s) de validação: %s", len(e.Messages), strings.Join(e.Truncated(3), "; "))
}

// Truncated returns at most n messages.
func (e *ValidationError) Truncated(n int) []string {
	if len(e.Messages) <= n {
		return e.Messages
	}
	return e.Messages[:n]
}

func required(row int, field string) string {
	return fmt.Sprintf("Linha %d: %s obrigatório", row, field)
}

func notFound(row int, field, value string) string {
	return fmt.Sprintf("Linha %d: %s %q não encontrado", row, field, value)
}

func invalid(row int, field, value string) string {
	return fmt.Sprintf("Linha %d: %s %q inválido", row, field, value)
}
