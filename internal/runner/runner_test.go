package runner

import (
	"context"
	"errors"
	"testing"

	"ndnrtc/internal/errs"
)

func TestWaitReturnsTaskError(t *testing.T) {
	g, _ := New(context.Background())
	wantErr := errors.New("boom")

	g.Go("failing", func() error { return wantErr })
	g.Go("ok", func() error { return nil })

	if err := g.Wait(); err != wantErr {
		t.Fatalf("Wait() = %v, want %v", err, wantErr)
	}
}

func TestGoRecoversFatalInvariantPanic(t *testing.T) {
	g, _ := New(context.Background())

	g.Go("panicking", func() error {
		panic(errs.FatalInvariantError{Invariant: "test", Detail: "forced"})
	})

	err := g.Wait()
	var fe errs.FatalInvariantError
	if !errors.As(err, &fe) {
		t.Fatalf("Wait() = %v, want a FatalInvariantError", err)
	}
	if fe.Invariant != "test" {
		t.Fatalf("Invariant = %q, want %q", fe.Invariant, "test")
	}
}
