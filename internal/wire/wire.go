// Package wire implements the binary codecs carried as the opaque
// payload of each NDN data segment: the per-segment meta header, and
// the frame header embedded in segment 0's payload.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// MagicVideoStart and friends bracket the FrameHeader so a receiver can
// tell a recognized header from opaque codec bytes.
var (
	MagicVideoStart = [2]byte{0xf4, 0xd4}
	MagicVideoEnd   = [2]byte{0xfb, 0x0d}
	MagicAudioStart = [2]byte{0xa4, 0xa4}
	MagicAudioEnd   = [2]byte{0xab, 0xad}
)

// SegmentMetaHeaderSize is the fixed wire size of SegmentMetaHeader.
const SegmentMetaHeaderSize = 4 + 8 + 4

// SegmentMetaHeader is stamped by the publisher on every segment.
type SegmentMetaHeader struct {
	Nonce             uint32
	InterestArrivalMs uint64
	GenerationDelayMs uint32
}

// Encode renders the header in its fixed little-endian layout.
func (h SegmentMetaHeader) Encode() []byte {
	buf := make([]byte, SegmentMetaHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Nonce)
	binary.LittleEndian.PutUint64(buf[4:12], h.InterestArrivalMs)
	binary.LittleEndian.PutUint32(buf[12:16], h.GenerationDelayMs)
	return buf
}

// DecodeSegmentMetaHeader parses the fixed header prefix of a segment
// payload, returning the header and the remaining payload bytes.
func DecodeSegmentMetaHeader(b []byte) (SegmentMetaHeader, []byte, error) {
	if len(b) < SegmentMetaHeaderSize {
		return SegmentMetaHeader{}, nil, fmt.Errorf("wire: segment too short: %d bytes", len(b))
	}
	h := SegmentMetaHeader{
		Nonce:             binary.LittleEndian.Uint32(b[0:4]),
		InterestArrivalMs: binary.LittleEndian.Uint64(b[4:12]),
		GenerationDelayMs: binary.LittleEndian.Uint32(b[12:16]),
	}
	return h, b[SegmentMetaHeaderSize:], nil
}

// PacketMetadata is the producer's rate-metering payload carried inside
// FrameHeader.
type PacketMetadata struct {
	PacketRate          float64
	ProducerTimestampMs int64
}

const packetMetadataSize = 8 + 8

func (m PacketMetadata) encode(buf *bytes.Buffer) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(m.PacketRate))
	buf.Write(tmp[:])
	binary.LittleEndian.PutUint64(tmp[:], uint64(m.ProducerTimestampMs))
	buf.Write(tmp[:])
}

func decodePacketMetadata(b []byte) (PacketMetadata, error) {
	if len(b) < packetMetadataSize {
		return PacketMetadata{}, fmt.Errorf("wire: packet metadata too short: %d bytes", len(b))
	}
	return PacketMetadata{
		PacketRate:          math.Float64frombits(binary.LittleEndian.Uint64(b[0:8])),
		ProducerTimestampMs: int64(binary.LittleEndian.Uint64(b[8:16])),
	}, nil
}

// FrameType distinguishes key from delta at the header level, mirroring
// names.Namespace but carried on the wire as a single byte.
type FrameType uint8

const (
	FrameTypeDelta FrameType = iota
	FrameTypeKey
)

// FrameHeaderSize is the fixed wire size, magic brackets included.
const FrameHeaderSize = 2 + 4 + 4 + 4 + 8 + 1 + 1 + packetMetadataSize + 2

// FrameHeader is the header embedded at the start of segment 0's
// payload.
type FrameHeader struct {
	Video           bool
	EncodedWidth    uint32
	EncodedHeight   uint32
	Timestamp       uint32
	CaptureTimeMs   int64
	FrameType       FrameType
	CompleteFlag    bool
	PacketMetadata  PacketMetadata
}

// Encode renders the frame header, bracketed by the video or audio magic.
func (h FrameHeader) Encode() []byte {
	start, end := MagicAudioStart, MagicAudioEnd
	if h.Video {
		start, end = MagicVideoStart, MagicVideoEnd
	}
	buf := bytes.NewBuffer(make([]byte, 0, FrameHeaderSize))
	buf.Write(start[:])
	var tmp4 [4]byte
	binary.LittleEndian.PutUint32(tmp4[:], h.EncodedWidth)
	buf.Write(tmp4[:])
	binary.LittleEndian.PutUint32(tmp4[:], h.EncodedHeight)
	buf.Write(tmp4[:])
	binary.LittleEndian.PutUint32(tmp4[:], h.Timestamp)
	buf.Write(tmp4[:])
	var tmp8 [8]byte
	binary.LittleEndian.PutUint64(tmp8[:], uint64(h.CaptureTimeMs))
	buf.Write(tmp8[:])
	buf.WriteByte(byte(h.FrameType))
	if h.CompleteFlag {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	h.PacketMetadata.encode(buf)
	buf.Write(end[:])
	return buf.Bytes()
}

// Unknown reports whether b's leading bytes do not match a recognized
// magic; callers should then treat the whole payload as opaque codec
// bytes rather than attempt a header decode.
func Unknown(b []byte) bool {
	if len(b) < 2 {
		return true
	}
	switch {
	case b[0] == MagicVideoStart[0] && b[1] == MagicVideoStart[1]:
		return false
	case b[0] == MagicAudioStart[0] && b[1] == MagicAudioStart[1]:
		return false
	default:
		return true
	}
}

// DecodeFrameHeader parses a frame header from segment 0's payload,
// returning the header and the remaining bytes (the encoded image).
func DecodeFrameHeader(b []byte) (FrameHeader, []byte, error) {
	if len(b) < FrameHeaderSize {
		return FrameHeader{}, nil, fmt.Errorf("wire: frame header too short: %d bytes", len(b))
	}
	var video bool
	switch {
	case b[0] == MagicVideoStart[0] && b[1] == MagicVideoStart[1]:
		video = true
	case b[0] == MagicAudioStart[0] && b[1] == MagicAudioStart[1]:
		video = false
	default:
		return FrameHeader{}, nil, fmt.Errorf("wire: unrecognized magic %x%x", b[0], b[1])
	}
	off := 2
	width := binary.LittleEndian.Uint32(b[off:])
	off += 4
	height := binary.LittleEndian.Uint32(b[off:])
	off += 4
	ts := binary.LittleEndian.Uint32(b[off:])
	off += 4
	capture := int64(binary.LittleEndian.Uint64(b[off:]))
	off += 8
	ftype := FrameType(b[off])
	off++
	complete := b[off] != 0
	off++
	meta, err := decodePacketMetadata(b[off : off+packetMetadataSize])
	if err != nil {
		return FrameHeader{}, nil, err
	}
	off += packetMetadataSize
	endMagic := b[off : off+2]
	wantEnd := MagicAudioEnd
	if video {
		wantEnd = MagicVideoEnd
	}
	if endMagic[0] != wantEnd[0] || endMagic[1] != wantEnd[1] {
		return FrameHeader{}, nil, fmt.Errorf("wire: trailing magic mismatch")
	}
	off += 2
	return FrameHeader{
		Video:          video,
		EncodedWidth:   width,
		EncodedHeight:  height,
		Timestamp:      ts,
		CaptureTimeMs:  capture,
		FrameType:      ftype,
		CompleteFlag:   complete,
		PacketMetadata: meta,
	}, b[off:], nil
}
