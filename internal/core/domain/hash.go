package domain

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// hiSeed seeds the second xxhash lane of a Hash.
const hiSeed = 0x9E3779B97F4A7C15

// Hash is a 128-bit content digest built from two independently seeded xxhash lanes.
type Hash struct {
	Lo uint64
	Hi uint64
}

// IsZero reports whether h is the zero digest.
func (h Hash) IsZero() bool {
	return h.Lo == 0 && h.Hi == 0
}

// String renders the digest as 32 hex characters.
func (h Hash) String() string {
	return fmt.Sprintf("%016x%016x", h.Hi, h.Lo)
}

// Base36 renders the low lane in base 36, used for directory names.
func (h Hash) Base36() string {
	return strconv.FormatUint(h.Lo, 36)
}

// Combine hashes h followed by o. It is order dependent.
func (h Hash) Combine(o Hash) Hash {
	return NewHashBuilder().Hash(h).Hash(o).Sum()
}

// Merge adds the lanes of h and o with wrap-around. It is commutative and associative,
// so merging a set of digests gives the same result in any order.
func (h Hash) Merge(o Hash) Hash {
	return Hash{Lo: h.Lo + o.Lo, Hi: h.Hi + o.Hi}
}

// HashBuilder accumulates fields into a Hash.
// Every variable-length field is length-prefixed so that field boundaries are unambiguous.
type HashBuilder struct {
	lo  *xxhash.Digest
	hi  *xxhash.Digest
	buf [8]byte
}

// NewHashBuilder returns an empty builder.
func NewHashBuilder() *HashBuilder {
	return &HashBuilder{
		lo: xxhash.New(),
		hi: xxhash.NewWithSeed(hiSeed),
	}
}

func (b *HashBuilder) write(p []byte) {
	_, _ = b.lo.Write(p)
	_, _ = b.hi.Write(p)
}

// Write feeds raw bytes, so a HashBuilder can be the target of io.Copy.
func (b *HashBuilder) Write(p []byte) (int, error) {
	b.write(p)
	return len(p), nil
}

// Uint64 writes a fixed-width integer.
func (b *HashBuilder) Uint64(v uint64) *HashBuilder {
	binary.LittleEndian.PutUint64(b.buf[:], v)
	b.write(b.buf[:])
	return b
}

// Bytes writes a length-prefixed byte slice.
func (b *HashBuilder) Bytes(p []byte) *HashBuilder {
	b.Uint64(uint64(len(p)))
	b.write(p)
	return b
}

// String writes a length-prefixed string.
func (b *HashBuilder) String(s string) *HashBuilder {
	b.Uint64(uint64(len(s)))
	_, _ = b.lo.WriteString(s)
	_, _ = b.hi.WriteString(s)
	return b
}

// Hash writes another digest.
func (b *HashBuilder) Hash(h Hash) *HashBuilder {
	return b.Uint64(h.Lo).Uint64(h.Hi)
}

// Sum returns the digest of everything written so far.
func (b *HashBuilder) Sum() Hash {
	return Hash{Lo: b.lo.Sum64(), Hi: b.hi.Sum64()}
}

// HashBytes digests raw content.
func HashBytes(p []byte) Hash {
	return NewHashBuilder().Bytes(p).Sum()
}

// HashString digests a string.
func HashString(s string) Hash {
	return NewHashBuilder().String(s).Sum()
}
