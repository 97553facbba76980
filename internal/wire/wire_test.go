package wire

import "testing"

func TestSegmentMetaHeaderRoundTrip(t *testing.T) {
	h := SegmentMetaHeader{Nonce: 0xdeadbeef, InterestArrivalMs: 1234567890, GenerationDelayMs: 42}
	payload := append(h.Encode(), []byte("hello")...)
	got, rest, err := DecodeSegmentMetaHeader(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != h {
		t.Fatalf("got %+v, want %+v", got, h)
	}
	if string(rest) != "hello" {
		t.Fatalf("rest = %q, want %q", rest, "hello")
	}
}

func TestFrameHeaderRoundTrip(t *testing.T) {
	h := FrameHeader{
		Video:         true,
		EncodedWidth:  1280,
		EncodedHeight: 720,
		Timestamp:     900,
		CaptureTimeMs: 1700000000123,
		FrameType:     FrameTypeKey,
		CompleteFlag:  true,
		PacketMetadata: PacketMetadata{
			PacketRate:          29.97,
			ProducerTimestampMs: 1700000000000,
		},
	}
	payload := append(h.Encode(), []byte("encodedimagebytes")...)
	got, rest, err := DecodeFrameHeader(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != h {
		t.Fatalf("got %+v, want %+v", got, h)
	}
	if string(rest) != "encodedimagebytes" {
		t.Fatalf("rest = %q", rest)
	}
}

func TestUnknownMagic(t *testing.T) {
	if !Unknown([]byte{0x00, 0x01, 0x02}) {
		t.Fatal("expected unknown magic to be reported")
	}
	if Unknown(append(MagicVideoStart[:], 0, 0)) {
		t.Fatal("expected recognized video magic")
	}
}
