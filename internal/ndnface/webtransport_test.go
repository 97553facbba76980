package ndnface

import (
	"context"
	"testing"
	"time"

	"ndnrtc/internal/names"
)

func TestWebTransportFaceListenDialRoundTrip(t *testing.T) {
	addr := "localhost:44333"

	listenCtx, cancelListen := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelListen()

	producerCh := make(chan *WebTransportFace, 1)
	errCh := make(chan error, 1)
	go func() {
		producer, err := ListenWebTransportFace(listenCtx, addr, "localhost")
		if err != nil {
			errCh <- err
			return
		}
		producerCh <- producer
	}()

	dialCtx, cancelDial := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelDial()
	consumer, err := DialWebTransportFace(dialCtx, addr)
	if err != nil {
		t.Fatalf("DialWebTransportFace: %v", err)
	}
	defer consumer.Close()

	var producer *WebTransportFace
	select {
	case producer = <-producerCh:
	case err := <-errCh:
		t.Fatalf("ListenWebTransportFace: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for producer session")
	}
	defer producer.Close()

	stream := names.Name{"ndn", "edu", "test", "stream"}
	want := Data{Name: stream.Append("t0", "D", "1", "0"), Payload: []byte("hello-wt")}

	if err := producer.Serve(context.Background(), stream, func(ctx context.Context, interest names.Name, nonce uint32) (Data, bool) {
		return want, true
	}); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	ch, err := consumer.Express(context.Background(), want.Name, 42)
	if err != nil {
		t.Fatalf("Express: %v", err)
	}

	select {
	case d := <-ch:
		if string(d.Payload) != "hello-wt" {
			t.Fatalf("payload = %q, want hello-wt", d.Payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for data over webtransport session")
	}
}
