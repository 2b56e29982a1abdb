// ABOUTME: Operator identity carried through request handlers
// ABOUTME: Provides WithOperator/FromContext for propagating auth info via context

package auth

import (
	"context"
)

// Operator is the authenticated dashboard user behind a request.
type Operator struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// operatorKey is the key type for storing Operator in context.Context.
type operatorKey struct{}

// WithOperator returns a new context with op attached.
func WithOperator(ctx context.Context, op *Operator) context.Context {
	return context.WithValue(ctx, operatorKey{}, op)
}

// FromContext retrieves the Operator from the context, returning nil if not present.
func FromContext(ctx context.Context) *Operator {
	op, _ := ctx.Value(operatorKey{}).(*Operator)
	return op
}
