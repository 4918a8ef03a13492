// Package ordernumber issues the customer-facing order identifiers printed on
// receipts and used as the payment provider's external reference.
package ordernumber

import (
	"context"
	"fmt"
)

// Prefix is the storefront brand tag on every order number.
const Prefix = "BEL"

// Source yields monotonically increasing values. Production uses a Postgres
// sequence so concurrent checkouts never collide.
type Source interface {
	Next(ctx context.Context) (int64, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (int64, error)

func (f SourceFunc) Next(ctx context.Context) (int64, error) { return f(ctx) }

// Generator formats sequence values into order numbers like BEL-123456.
type Generator struct {
	source Source
}

// NewGenerator validates the source and returns a generator.
func NewGenerator(source Source) (*Generator, error) {
	if source == nil {
		return nil, fmt.Errorf("source is required")
	}
	return &Generator{source: source}, nil
}

// Next returns the next order number. Values are zero padded to six digits
// and grow past six digits once the sequence exceeds 999999.
func (g *Generator) Next(ctx context.Context) (string, error) {
	n, err := g.source.Next(ctx)
	if err != nil {
		return "", fmt.Errorf("next order number: %w", err)
	}
	if n < 0 {
		return "", fmt.Errorf("sequence value %d is negative", n)
	}
	return fmt.Sprintf("%s-%06d", Prefix, n), nil
}
