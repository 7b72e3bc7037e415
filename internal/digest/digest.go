package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// Bytes computes the SHA256 hash of the given content as lowercase hex.
func Bytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// String computes the SHA256 hash of the given string as lowercase hex.
func String(content string) string {
	return Bytes([]byte(content))
}

// File computes the SHA256 hash of a file's content.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// FilesEqual reports whether two files exist and have identical content.
func FilesEqual(a, b string) (bool, error) {
	hashA, err := File(a)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	hashB, err := File(b)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	return hashA == hashB, nil
}
