package ndnface

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"fmt"
	"net/http"
	"sync"
	"time"

	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/named-data/ndnd/std/security/signer"
	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
	"github.com/quic-go/webtransport-go"

	"ndnrtc/internal/names"
)

// datagram framing (not NDN TLV — a simplified header over an
// unreliable datagram transport, generalized from a [userID:2][seq:2]
// send/receive datagram pattern to carry a full name plus nonce plus
// opaque segment bytes):
//
//	kind(u8) || nonce(u32 LE) || nameLen(u16 LE) || name || payload
const (
	kindInterest byte = 1
	kindData     byte = 2
)

const dialTimeout = 10 * time.Second

// WebTransportFace is a Face backed by a QUIC/WebTransport session's
// unreliable datagrams, in the same send/start-receiving shape as a
// transport layer built on webtransport-go.
type WebTransportFace struct {
	mu      sync.Mutex
	session *webtransport.Session
	cancel  context.CancelFunc
	server  *webtransport.Server // set on the producer side, closed alongside the session

	pendingMu sync.Mutex
	pending   map[string]chan Data // keyed by name string, one-shot

	handlerMu sync.Mutex
	prefix    names.Name
	handler   Handler
}

// DialWebTransportFace dials addr (host:port) as a consumer-side face.
func DialWebTransportFace(ctx context.Context, addr string) (*WebTransportFace, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	d := webtransport.Dialer{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		QUICConfig:      &quic.Config{EnableDatagrams: true},
	}
	_, sess, err := d.Dial(dialCtx, "https://"+addr, http.Header{})
	if err != nil {
		return nil, fmt.Errorf("ndnface: dial %s: %w", addr, err)
	}
	return newWebTransportFace(sess), nil
}

// ListenWebTransportFace starts a WebTransport/HTTP3 listener on addr
// and blocks until the first consumer session arrives, returning a
// producer-side Face wrapping it. hostname is used for the listener's
// throwaway TLS certificate's SANs; pass "" for a plain localhost cert.
//
// A single session is accepted because the Face abstraction is
// one-peer: the producer's publish loop serves one consumer per Face
// instance, mirroring how DialWebTransportFace wraps one session on
// the consumer side. A fan-out producer runs one listener per expected
// consumer, or layers a session-per-connection accept loop above this
// constructor once that need arises.
func ListenWebTransportFace(ctx context.Context, addr, hostname string) (*WebTransportFace, error) {
	tlsConf, err := generateSelfSignedTLSConfig(hostname)
	if err != nil {
		return nil, err
	}

	wts := &webtransport.Server{
		H3: http3.Server{
			Addr:      addr,
			TLSConfig: tlsConf,
			QUICConfig: &quic.Config{
				EnableDatagrams: true,
			},
		},
	}

	type accepted struct {
		sess *webtransport.Session
		err  error
	}
	acceptCh := make(chan accepted, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		sess, err := wts.Upgrade(w, r)
		select {
		case acceptCh <- accepted{sess: sess, err: err}:
		default:
			if err == nil {
				sess.CloseWithError(0, "extra session rejected")
			}
		}
	})
	wts.H3.Handler = mux

	serveErrCh := make(chan error, 1)
	go func() {
		serveErrCh <- wts.ListenAndServe()
	}()

	select {
	case a := <-acceptCh:
		if a.err != nil {
			_ = wts.Close()
			return nil, fmt.Errorf("ndnface: upgrade session: %w", a.err)
		}
		f := newWebTransportFace(a.sess)
		f.server = wts
		return f, nil
	case err := <-serveErrCh:
		return nil, fmt.Errorf("ndnface: listen %s: %w", addr, err)
	case <-ctx.Done():
		_ = wts.Close()
		return nil, ctx.Err()
	}
}

func newWebTransportFace(sess *webtransport.Session) *WebTransportFace {
	f := &WebTransportFace{
		session: sess,
		pending: make(map[string]chan Data),
	}
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go f.readLoop(ctx)
	return f
}

func (f *WebTransportFace) readLoop(ctx context.Context) {
	for {
		dgram, err := f.session.ReceiveDatagram(ctx)
		if err != nil {
			return
		}
		f.handleDatagram(ctx, dgram)
	}
}

func (f *WebTransportFace) handleDatagram(ctx context.Context, dgram []byte) {
	if len(dgram) < 1+4+2 {
		return
	}
	kind := dgram[0]
	nonce := binary.LittleEndian.Uint32(dgram[1:5])
	nameLen := binary.LittleEndian.Uint16(dgram[5:7])
	off := 7
	if len(dgram) < off+int(nameLen) {
		return
	}
	nameBytes := dgram[off : off+int(nameLen)]
	off += int(nameLen)
	payload := dgram[off:]

	n, err := decodeName(nameBytes)
	if err != nil {
		return
	}

	switch kind {
	case kindData:
		f.pendingMu.Lock()
		ch, ok := f.pending[n.String()]
		if ok {
			delete(f.pending, n.String())
		}
		f.pendingMu.Unlock()
		if ok {
			ch <- Data{Name: n, Payload: payload}
			close(ch)
		}
	case kindInterest:
		f.handlerMu.Lock()
		h := f.handler
		f.handlerMu.Unlock()
		if h == nil {
			return
		}
		d, ok := h(ctx, n, nonce)
		if !ok {
			return
		}
		f.sendFrame(kindData, nonce, d.Name, d.Payload)
	}
}

func (f *WebTransportFace) sendFrame(kind byte, nonce uint32, n names.Name, payload []byte) error {
	nameBytes, err := encodeName(n)
	if err != nil {
		return err
	}
	buf := make([]byte, 0, 7+len(nameBytes)+len(payload))
	buf = append(buf, kind)
	var nb [4]byte
	binary.LittleEndian.PutUint32(nb[:], nonce)
	buf = append(buf, nb[:]...)
	var lb [2]byte
	binary.LittleEndian.PutUint16(lb[:], uint16(len(nameBytes)))
	buf = append(buf, lb[:]...)
	buf = append(buf, nameBytes...)
	buf = append(buf, payload...)
	return f.session.SendDatagram(buf)
}

// Express sends an Interest datagram and returns a channel fulfilled
// by the next Data datagram matching name, or closed unfulfilled when
// the caller's context is cancelled.
func (f *WebTransportFace) Express(ctx context.Context, n names.Name, nonce uint32) (<-chan Data, error) {
	ch := make(chan Data, 1)
	f.pendingMu.Lock()
	f.pending[n.String()] = ch
	f.pendingMu.Unlock()

	if err := f.sendFrame(kindInterest, nonce, n, nil); err != nil {
		f.pendingMu.Lock()
		delete(f.pending, n.String())
		f.pendingMu.Unlock()
		close(ch)
		return ch, err
	}

	go func() {
		<-ctx.Done()
		f.pendingMu.Lock()
		if pending, ok := f.pending[n.String()]; ok && pending == ch {
			delete(f.pending, n.String())
			close(ch)
		}
		f.pendingMu.Unlock()
	}()
	return ch, nil
}

// Serve registers handler for incoming interests. Producer-side, prefix
// is informational only — every interest on the session is routed to
// the single registered handler, which is expected to check its own
// name against the prefix it cares about.
func (f *WebTransportFace) Serve(ctx context.Context, prefix names.Name, handler Handler) error {
	f.handlerMu.Lock()
	f.prefix = prefix
	f.handler = handler
	f.handlerMu.Unlock()
	return nil
}

// SignPayload produces a detached SHA-256 digest signature over
// payload, exercising the ndnd signer package at the one place this
// face touches cryptography; the signature is returned to the caller
// and is not attached to any datagram this face sends. A fresh digest signer
// is created per call since it carries no key state to reuse.
func (f *WebTransportFace) SignPayload(payload []byte) ([]byte, error) {
	s := signer.NewSha256Signer()
	return s.Sign(enc.Wire{payload})
}

func (f *WebTransportFace) Close() error {
	f.cancel()
	f.mu.Lock()
	sess := f.session
	server := f.server
	f.mu.Unlock()
	var err error
	if sess != nil {
		err = sess.CloseWithError(0, "face closed")
	}
	if server != nil {
		_ = server.Close()
	}
	return err
}

// encodeName validates n through ndnd's encoding.Name (the real NDN
// name grammar) before rendering it in this face's wire framing, so a
// name that cannot round-trip through the NDN representation is caught
// here rather than silently sent.
func encodeName(n names.Name) ([]byte, error) {
	if _, err := toEncName(n); err != nil {
		return nil, fmt.Errorf("ndnface: invalid name %s: %w", n, err)
	}
	return []byte(n.String()), nil
}

func decodeName(b []byte) (names.Name, error) {
	s := string(b)
	if len(s) == 0 || s[0] != '/' {
		return nil, fmt.Errorf("ndnface: invalid name encoding %q", s)
	}
	en, err := toEncName(names.Name(splitPath(s)))
	if err != nil {
		return nil, err
	}
	return fromEncName(en), nil
}

func splitPath(s string) []string {
	s = s[1:]
	if s == "" {
		return nil
	}
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
