package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Logger is the minimal logging surface consumers plug their own
// logger into
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// CredentialStore is the persistence contract the lifecycle runs on.
// Implementations must keep every Update atomic at the row level and
// signal missing records with an error satisfying errors.IsNotFound
// from goliatone/go-errors.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Identity, error)
	Create(ctx context.Context, record *Identity) (*Identity, error)
	Update(ctx context.Context, id uuid.UUID, patch IdentityUpdate) (*Identity, error)
}

// Field is an optional cell in a partial update: distinguish "leave the
// column alone" from "write this value", including writing nil.
type Field[T any] struct {
	value T
	set   bool
}

// Set marks a field cell as carrying a value
func Set[T any](value T) Field[T] {
	return Field[T]{value: value, set: true}
}

// Valid reports whether the cell carries a value
func (f Field[T]) Valid() bool { return f.set }

// Value returns the carried value; zero when unset
func (f Field[T]) Value() T { return f.value }

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IDENTITY "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] IDENTITY "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IDENTITY "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IDENTITY "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
