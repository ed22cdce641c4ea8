package protocol

import (
	crand "crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"time"
)

// GenerateLongAddress returns a random locally administered EUI-64.
// If crypto/rand fails (rare on host), falls back to math/rand.
func GenerateLongAddress() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		src := mrand.NewSource(time.Now().UnixNano())
		binary.LittleEndian.PutUint64(b[:], mrand.New(src).Uint64())
	}
	// locally administered, unicast
	b[7] = (b[7] | 0x02) &^ 0x01
	return binary.LittleEndian.Uint64(b[:])
}
