package embcache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
)

var errCorruptEntry = errors.New("embcache: corrupt entry")

// keyFor hashes text so arbitrary input yields a fixed-length key.
func keyFor(prefix, text string) string {
	sum := sha256.Sum256([]byte(text))
	return prefix + hex.EncodeToString(sum[:])
}

// encode packs v as little-endian float32s, the layout FT.SEARCH expects
// for vector blobs.
func encode(v []float32) []byte {
	buf := make([]byte, 0, 4*len(v))
	for _, f := range v {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return buf
}

func decode(b []byte) ([]float32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", errCorruptEntry, len(b))
	}
	v := make([]float32, 0, len(b)/4)
	for off := 0; off < len(b); off += 4 {
		v = append(v, math.Float32frombits(binary.LittleEndian.Uint32(b[off:])))
	}
	return v, nil
}
