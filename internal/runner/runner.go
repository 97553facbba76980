// Package runner coordinates the goroutine lifecycle of the producer
// and consumer binaries with golang.org/x/sync/errgroup: any task's
// error, or a recovered errs.FatalInvariantError panic, cancels the
// shared context and stops the rest, mirroring the errs severity
// ladder (Fatal panics the owning goroutine; the process exits).
package runner

import (
	"context"

	"golang.org/x/sync/errgroup"

	"ndnrtc/internal/errs"
	"ndnrtc/internal/logger"
)

// Group supervises a set of goroutines sharing one cancellation
// context.
type Group struct {
	g *errgroup.Group
}

// New returns a Group derived from ctx, plus the context tasks should
// select on; it is cancelled as soon as any task returns an error.
func New(ctx context.Context) (*Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	return &Group{g: g}, gctx
}

// Go runs fn in the group under name (used only for logging). A
// recovered FatalInvariantError panic is converted into fn's returned
// error instead of crashing the process; any other panic propagates.
func (r *Group) Go(name string, fn func() error) {
	r.g.Go(func() (err error) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if fe, ok := rec.(errs.FatalInvariantError); ok {
				logger.L().Error("fatal invariant violated",
					"task", name, "invariant", fe.Invariant, "detail", fe.Detail)
				err = fe
				return
			}
			panic(rec)
		}()
		return fn()
	})
}

// Wait blocks until every task has returned or one has failed,
// returning the first non-nil error.
func (r *Group) Wait() error {
	return r.g.Wait()
}
