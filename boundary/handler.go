package boundary

import (
	"context"
)

// Args are the raw 32-bit argument slots of a call, in declaration order.
type Args []uint32

// Int32 returns slot i as a signed value.
func (a Args) Int32(i int) int32 {
	return int32(a[i])
}

// Uint32 returns slot i.
func (a Args) Uint32(i int) uint32 {
	return a[i]
}

// Handler implements one export. The table guarantees len(args) matches the
// declared arity before the handler runs.
type Handler func(ctx context.Context, args Args) (uint32, error)

// Word is a value that occupies exactly one 32-bit slot.
type Word interface {
	~int32 | ~uint32
}

// Func0 adapts a typed function with no arguments into a Handler.
func Func0[R Word](fn func(context.Context) (R, error)) Handler {
	return func(ctx context.Context, _ Args) (uint32, error) {
		r, err := fn(ctx)
		return uint32(r), err
	}
}

// Func1 adapts a typed unary function into a Handler.
func Func1[A, R Word](fn func(context.Context, A) (R, error)) Handler {
	return func(ctx context.Context, args Args) (uint32, error) {
		r, err := fn(ctx, A(args[0]))
		return uint32(r), err
	}
}

// Func2 adapts a typed binary function into a Handler.
//
// Usage:
//
//	add := boundary.Func2(func(_ context.Context, a, b int32) (int32, error) {
//	    return a + b, nil
//	})
func Func2[A, B, R Word](fn func(context.Context, A, B) (R, error)) Handler {
	return func(ctx context.Context, args Args) (uint32, error) {
		r, err := fn(ctx, A(args[0]), B(args[1]))
		return uint32(r), err
	}
}

// Func3 adapts a typed ternary function into a Handler.
func Func3[A, B, C, R Word](fn func(context.Context, A, B, C) (R, error)) Handler {
	return func(ctx context.Context, args Args) (uint32, error) {
		r, err := fn(ctx, A(args[0]), B(args[1]), C(args[2]))
		return uint32(r), err
	}
}
