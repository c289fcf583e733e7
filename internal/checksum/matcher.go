package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex sha-256 of the data. Document uploads store it so the
// same file cannot be registered twice for a client.
func Sum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
