package ndnface

import (
	"context"
	"testing"
	"time"

	"ndnrtc/internal/names"
)

func TestLoopbackExpressServe(t *testing.T) {
	consumer := NewLoopbackFace()
	producer := NewLoopbackFace()
	ConnectLoopback(consumer, producer)

	stream := names.Name{"ndn", "edu", "test", "stream"}
	want := Data{Name: stream.Append("t0", "D", "1", "0"), Payload: []byte("hello")}

	if err := producer.Serve(context.Background(), stream, func(ctx context.Context, interest names.Name, nonce uint32) (Data, bool) {
		return want, true
	}); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	ch, err := consumer.Express(context.Background(), want.Name, 7)
	if err != nil {
		t.Fatalf("Express: %v", err)
	}

	select {
	case d := <-ch:
		if string(d.Payload) != "hello" {
			t.Fatalf("payload = %q, want hello", d.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for loopback data")
	}
}

func TestLoopbackNoHandlerClosesChannel(t *testing.T) {
	consumer := NewLoopbackFace()
	producer := NewLoopbackFace()
	ConnectLoopback(consumer, producer)

	ch, err := consumer.Express(context.Background(), names.Name{"a"}, 1)
	if err != nil {
		t.Fatalf("Express: %v", err)
	}
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel with no data")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}

func TestLoopbackCloseRejectsExpress(t *testing.T) {
	f := NewLoopbackFace()
	f.Close()
	if _, err := f.Express(context.Background(), names.Name{"a"}, 1); err != ErrClosed {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
}
