package ndnface

import (
	"context"
	"sync"

	"ndnrtc/internal/names"
)

// LoopbackFace is an in-process Face: Express calls are matched
// directly against a registered Serve handler via a Go channel, with
// no network involved. It is used by the scenario tests to exercise
// the pipeline deterministically.
type LoopbackFace struct {
	mu      sync.Mutex
	closed  bool
	handler Handler
	prefix  names.Name
	peer    *LoopbackFace
}

// NewLoopbackFace builds an unconnected loopback face; pair two of
// them by calling Serve on one and Express on the other only after
// wiring them together with ConnectLoopback.
func NewLoopbackFace() *LoopbackFace {
	return &LoopbackFace{}
}

// ConnectLoopback wires consumer's Express calls to producer's
// registered Serve handler, and vice versa is not required since NDN
// interests flow one direction (consumer to producer) per frame.
func ConnectLoopback(consumer, producer *LoopbackFace) {
	consumer.mu.Lock()
	consumer.peer = producer
	consumer.mu.Unlock()
}

func (f *LoopbackFace) Serve(ctx context.Context, prefix names.Name, handler Handler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	f.prefix = prefix
	f.handler = handler
	return nil
}

func (f *LoopbackFace) Express(ctx context.Context, name names.Name, nonce uint32) (<-chan Data, error) {
	f.mu.Lock()
	peer := f.peer
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	out := make(chan Data, 1)
	if peer == nil {
		close(out)
		return out, nil
	}

	peer.mu.Lock()
	h := peer.handler
	peer.mu.Unlock()
	if h == nil {
		close(out)
		return out, nil
	}

	go func() {
		defer close(out)
		d, ok := h(ctx, name, nonce)
		if !ok {
			return
		}
		select {
		case out <- d:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

func (f *LoopbackFace) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}
