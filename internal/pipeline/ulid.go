package pipeline

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// ULIDs are 26-character Crockford Base32 strings: a 48-bit millisecond
// timestamp followed by 80 bits that start with a per-millisecond sequence.

var (
	ulidMu  sync.Mutex
	lastTS  uint64
	lastSeq uint16
)

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

func generateULID() string {
	ulidMu.Lock()
	defer ulidMu.Unlock()

	ts := uint64(time.Now().UnixMilli())
	if ts == lastTS {
		lastSeq++
	} else {
		lastTS = ts
		lastSeq = 0
	}

	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], ts<<16)
	rand.Read(b[8:])
	binary.BigEndian.PutUint16(b[6:8], lastSeq)
	return encodeULID(b)
}

// encodeULID writes 128 bits as 26 base32 digits, most significant first. The
// leading digit carries only the top 3 bits.
func encodeULID(b [16]byte) string {
	hi := binary.BigEndian.Uint64(b[:8])
	lo := binary.BigEndian.Uint64(b[8:])

	var out [26]byte
	for i := 25; i >= 0; i-- {
		out[i] = crockford[lo&31]
		lo = lo>>5 | hi<<59
		hi >>= 5
	}
	return string(out[:])
}
