package checksum

import (
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/go-git/go-billy/v5"
)

const bufferSize = 64 * 1024 // 64KB buffer

// CalculateFile opens path on fsys and returns its CRC32 checksum
func CalculateFile(fsys billy.Basic, path string) (string, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return Calculate(file)
}

// Calculate reads r to EOF and returns the CRC32 (IEEE) checksum as
// lowercase hex. The caller is responsible for rewinding r afterwards.
func Calculate(r io.Reader) (string, error) {
	h := crc32.NewIEEE()
	buffer := make([]byte, bufferSize)

	for {
		n, err := r.Read(buffer)
		if n > 0 {
			if _, err := h.Write(buffer[:n]); err != nil {
				return "", fmt.Errorf("write to hash: %w", err)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read: %w", err)
		}
	}

	return encode(h), nil
}

// Equal reports whether both checksums are known and identical
func Equal(a, b string) bool {
	return a != "" && b != "" && a == b
}

func encode(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}
