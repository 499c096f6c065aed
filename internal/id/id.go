package id

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// UUID returns a random (v4) UUID string.
func UUID() string {
	return uuid.NewString()
}

// Crockford base32, no I, L, O or U.
const ulidEncoding = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var (
	ulidMu     sync.Mutex
	ulidLastMs int64
	ulidSeq    uint16
)

// ULID returns a 26-character lexicographically sortable identifier.
// IDs minted by one process sort in creation order, including within the
// same millisecond.
func ULID() string {
	ulidMu.Lock()
	defer ulidMu.Unlock()

	now := time.Now().UnixMilli()
	if now <= ulidLastMs {
		now = ulidLastMs
		ulidSeq++
		if ulidSeq == 0 {
			now++
		}
	} else {
		ulidSeq = 0
	}
	ulidLastMs = now
	return encodeULID(now, ulidSeq)
}

// encodeULID writes 48 bits of time, a 16-bit sequence and 64 random bits.
func encodeULID(ms int64, seq uint16) string {
	var entropy [10]byte
	_, _ = rand.Read(entropy[2:])
	entropy[0] = byte(seq >> 8)
	entropy[1] = byte(seq)

	out := make([]byte, 26)
	for i := 9; i >= 0; i-- {
		out[i] = ulidEncoding[ms&0x1F]
		ms >>= 5
	}

	// 80 bits of entropy as 16 base32 characters, most significant first.
	var acc uint64
	bits := 0
	pos := 10
	for _, b := range entropy {
		acc = acc<<8 | uint64(b)
		bits += 8
		for bits >= 5 {
			bits -= 5
			out[pos] = ulidEncoding[(acc>>uint(bits))&0x1F]
			pos++
		}
	}
	return string(out)
}

// IsValidULID reports whether s is 26 Crockford base32 characters.
func IsValidULID(s string) bool {
	if len(s) != 26 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if decodeULIDChar(s[i]) < 0 {
			return false
		}
	}
	return true
}

// ULIDTime extracts the timestamp from a ULID.
func ULIDTime(s string) (time.Time, error) {
	if !IsValidULID(s) {
		return time.Time{}, fmt.Errorf("invalid ULID: %s", s)
	}
	var ms int64
	for i := 0; i < 10; i++ {
		ms = ms<<5 | int64(decodeULIDChar(s[i]))
	}
	return time.UnixMilli(ms), nil
}

func decodeULIDChar(c byte) int {
	for i := 0; i < len(ulidEncoding); i++ {
		if ulidEncoding[i] == c {
			return i
		}
	}
	return -1
}
