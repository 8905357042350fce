package badger

import (
	"encoding/binary"

	"github.com/poiesic/pairfinder/core"
)

const (
	pairRecordPrefix = "pair:"
	pairHashPrefix   = "pairhash:"
	pairIDSeq        = "pairseq"
)

// makePairKey generates a key for a translation pair by ID.
// Format: prefix + 8 byte big endian id, so keys iterate in id order.
func makePairKey(id core.ID) []byte {
	buf := make([]byte, len(pairRecordPrefix)+8)
	offset := copy(buf, pairRecordPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// pairIDFromKey extracts the id from a key produced by makePairKey.
func pairIDFromKey(key []byte) (core.ID, bool) {
	if len(key) != len(pairRecordPrefix)+8 {
		return 0, false
	}
	return core.ID(binary.BigEndian.Uint64(key[len(pairRecordPrefix):])), true
}

// makePairHashKey generates the content hash index key.
// Format: prefix + 8 byte big endian hash
func makePairHashKey(hash core.ContentHash) []byte {
	buf := make([]byte, len(pairHashPrefix)+8)
	offset := copy(buf, pairHashPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(hash))
	return buf
}
