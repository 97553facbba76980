// Package ndnface is the sole place the NDN wire representation, a
// real transport, and signing are touched; the NDN wire protocol
// itself is not respecified here. Every other package speaks in
// internal/names.Name and raw bytes.
package ndnface

import (
	"context"
	"errors"
	"strings"

	enc "github.com/named-data/ndnd/std/encoding"

	"ndnrtc/internal/names"
)

// ErrClosed is returned by Face operations after Close.
var ErrClosed = errors.New("ndnface: face closed")

// Data is one received segment: a name and its opaque wire payload
// (wire.SegmentMetaHeader || payload).
type Data struct {
	Name    names.Name
	Payload []byte
}

// Handler answers an incoming interest under a registered prefix. nonce
// is the interest's nonce, carried through so a producer can record it
// into a PendingInterestTable for later nonce/arrival-time stamping. It
// returns ok=false to decline (no matching data, let it time out).
type Handler func(ctx context.Context, interest names.Name, nonce uint32) (Data, bool)

// Face is the transport-agnostic boundary the Pipeliner and Publisher
// are built against.
type Face interface {
	// Express sends an interest for name and returns a channel that
	// receives at most one Data before closing. nonce is echoed back by
	// a cooperating producer in SegmentMetaHeader.Nonce.
	Express(ctx context.Context, name names.Name, nonce uint32) (<-chan Data, error)
	// Serve registers handler for every interest arriving under prefix.
	Serve(ctx context.Context, prefix names.Name, handler Handler) error
	Close() error
}

// toEncName converts the core's plain-string Name into ndnd's
// encoding.Name, the only point where the two representations meet.
func toEncName(n names.Name) (enc.Name, error) {
	return enc.NameFromStr(n.String())
}

// fromEncName converts back, trimming the leading empty component left
// by the "/"-prefixed rendering.
func fromEncName(n enc.Name) names.Name {
	s := strings.TrimPrefix(n.String(), "/")
	if s == "" {
		return names.Name{}
	}
	return names.Name(strings.Split(s, "/"))
}
