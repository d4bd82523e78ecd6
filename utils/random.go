package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

func GenerateCode(n int) (string, error) {
	// Make a slice of n random bytes.
	byt := make([]byte, n)

	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// GenerateID returns a lowercase alphanumeric id in the same shape
// PocketBase uses for record ids.
func GenerateID(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"

	id := make([]byte, length)
	if _, err := rand.Read(id); err != nil {
		return "", err
	}

	for i := range id {
		id[i] = charset[int(id[i])%len(charset)]
	}

	return string(id), nil
}
