package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

const contentChunkSize = 8192

// ContentHash computes the SHA-256 digest of a file's bytes, reading in
// fixed-size chunks. Two files with identical bytes always produce the same
// digest. Fails on unreadable files; callers treat that as "skip this file".
func ContentHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	hasher := sha256.New()
	buf := make([]byte, contentChunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
