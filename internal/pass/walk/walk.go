// Package walk implements spec §6's higher-order traversals over a
// pass.Scope: walk::classes, walk::methods, walk::fields, walk::opcodes,
// plus parallel and accumulating variants
// (walk::parallel::methods<T, Merge>). The parallel variants are the
// §5 "pool of parallel worker threads" concretely: a bounded
// golang.org/x/sync/errgroup.Group, one goroutine per method, with the
// §5 mutation discipline ("each worker exclusively owns the method
// body it is currently processing") left to the caller's closure.
package walk

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"redopt/internal/ir"
	"redopt/internal/pass"
)

// DefaultParallelism bounds worker count when a caller passes limit <= 0.
func DefaultParallelism() int {
	if n := runtime.GOMAXPROCS(0); n > 0 {
		return n
	}
	return 1
}

// Classes visits every class in scope, in order, on the calling
// goroutine. Sequential: class-level rewrites are rare enough that
// spec §5's "add/remove classes... forbidden mid-pass" already rules
// out most reasons to parallelize this one.
func Classes(s *pass.Scope, visit func(*ir.Class)) {
	for _, c := range s.Classes {
		visit(c)
	}
}

// Methods visits every method in scope, in order, on the calling
// goroutine.
func Methods(s *pass.Scope, visit func(*ir.Method)) {
	for _, m := range s.Methods() {
		visit(m)
	}
}

// Fields visits every field in scope, in order, on the calling
// goroutine.
func Fields(s *pass.Scope, visit func(*ir.Field)) {
	for _, f := range s.Fields() {
		visit(f)
	}
}

// Opcodes visits every instruction of every method in scope whose body
// still carries a linear item list (a method with a built, editable
// CFG has none — spec §3's "not simultaneously authoritative").
func Opcodes(s *pass.Scope, visit func(*ir.Method, *ir.Instruction)) {
	for _, m := range s.Methods() {
		if m.Body == nil {
			continue
		}
		for _, it := range m.Body.Items {
			if it.Kind == ir.ItemInstruction {
				visit(m, it.Insn)
			}
		}
	}
}

// ParallelMethods is walk::parallel::methods without an accumulator:
// fn runs once per method from a pool of at most limit goroutines
// (limit <= 0 uses DefaultParallelism). The first error returned by
// any fn cancels the remaining work and is returned to the caller;
// spec §5 has no cancellation story inside a single pass's worker
// pool, but a pass is free to treat "some method rejected its own
// input" as an error its caller surfaces as an invariant violation.
func ParallelMethods(ctx context.Context, s *pass.Scope, limit int, fn func(*ir.Method) error) error {
	if limit <= 0 {
		limit = DefaultParallelism()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, m := range s.Methods() {
		m := m
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			return fn(m)
		})
	}
	return g.Wait()
}

// ParallelAccumulateMethods is walk::parallel::methods<T, Merge>: fn
// computes a per-method partial result and merge combines them into a
// single T. Once every fn has returned, the partials are folded with
// merge left to right in scope order, starting from zero.
func ParallelAccumulateMethods[T any](ctx context.Context, s *pass.Scope, limit int, zero T, fn func(*ir.Method) (T, error), merge func(acc, v T) T) (T, error) {
	if limit <= 0 {
		limit = DefaultParallelism()
	}
	methods := s.Methods()
	partials := make([]T, len(methods))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, m := range methods {
		i, m := i, m
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			v, err := fn(m)
			if err != nil {
				return err
			}
			partials[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return zero, err
	}
	acc := zero
	for _, v := range partials {
		acc = merge(acc, v)
	}
	return acc, nil
}
