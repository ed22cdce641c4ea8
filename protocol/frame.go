package protocol

import (
	"encoding/binary"
	"fmt"
)

// Frame is a PAN discovery frame as held in the rotating pool.
// Only the first BlinkFrameSize (blink) or ResponseFrameSize (response) bytes
// go on air; the timestamps and the correction factor are local bookkeeping.
type Frame struct {
	FrameControl byte
	SeqNum       uint8
	LongAddress  uint64

	// response only
	ShortAddress uint16
	PANID        uint16
	SlotID       uint16

	TransmissionTimestamp uint64
	ReceptionTimestamp    uint64
	CorrectionFactor      float32
}

// FrameKind tells a blink from an allocation response.
type FrameKind uint8

const (
	KindUnknown FrameKind = iota
	KindBlink
	KindResponse
)

func (k FrameKind) String() string {
	switch k {
	case KindBlink:
		return "blink"
	case KindResponse:
		return "response"
	default:
		return "unknown"
	}
}

// KindOf classifies a frame by its on-air length.
func KindOf(length int) FrameKind {
	switch length {
	case BlinkFrameSize:
		return KindBlink
	case ResponseFrameSize:
		return KindResponse
	default:
		return KindUnknown
	}
}

// EncodeBlink serialises the blink part of f.
func EncodeBlink(f *Frame) []byte {
	data := make([]byte, BlinkFrameSize)
	if f == nil {
		return data
	}
	putHeader(data, f)
	return data
}

// EncodeResponse serialises f as an allocation response.
func EncodeResponse(f *Frame) []byte {
	data := make([]byte, ResponseFrameSize)
	if f == nil {
		return data
	}
	putHeader(data, f)
	binary.LittleEndian.PutUint16(data[offShort:], f.ShortAddress)
	binary.LittleEndian.PutUint16(data[offPANID:], f.PANID)
	binary.LittleEndian.PutUint16(data[offSlotID:], f.SlotID)
	return data
}

func putHeader(data []byte, f *Frame) {
	data[0] = f.FrameControl
	data[offSeq] = f.SeqNum
	binary.LittleEndian.PutUint64(data[offLong:], f.LongAddress)
}

// DecodeFrame overlays data onto f. The kind is chosen by len(data); the
// local bookkeeping fields of f are left untouched, as are the response
// fields when data is a blink.
func DecodeFrame(f *Frame, data []byte) (FrameKind, error) {
	kind := KindOf(len(data))
	if kind == KindUnknown {
		return kind, fmt.Errorf("%w: %d bytes", ErrInvalidFrameSize, len(data))
	}
	f.FrameControl = data[0]
	f.SeqNum = data[offSeq]
	f.LongAddress = binary.LittleEndian.Uint64(data[offLong:])
	if kind == KindResponse {
		f.ShortAddress = binary.LittleEndian.Uint16(data[offShort:])
		f.PANID = binary.LittleEndian.Uint16(data[offPANID:])
		f.SlotID = binary.LittleEndian.Uint16(data[offSlotID:])
	}
	return kind, nil
}

// CorrectionFactor derives the sender/receiver clock ratio from the receiver
// time tracking registers. Only the offset field of the raw offset register
// is used. A zero interval yields 1.
func CorrectionFactor(interval int32, rawOffset uint32) float32 {
	if interval == 0 {
		return 1
	}
	offset := int32(rawOffset & RxTTCKOOffsetMask)
	return 1 + float32(offset)/float32(interval)
}
