package badger

import (
	"encoding/binary"

	"github.com/poiesic/catalogsync/core"
)

// Key prefixes for different data types
const (
	embeddingPrefix  = "embvec:"
	checkpointPrefix = "cycle"
)

// makeEmbeddingKey generates a key for a cached vector.
// Format: prefix + 8 byte big-endian fingerprint
func makeEmbeddingKey(fp core.Fingerprint) []byte {
	buf := make([]byte, len(embeddingPrefix)+8)
	offset := copy(buf, embeddingPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(fp))
	return buf
}

// makeCheckpointKey generates the key for the latest cycle checkpoint.
func makeCheckpointKey() []byte {
	return []byte(checkpointPrefix + ":chkpt")
}
