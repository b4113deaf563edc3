package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

const serviceTokenPrefix = "opc_"

// GenerateServiceToken creates a new static token for automation clients.
// Format: opc_<uuid>_<random_secret>. Only the hash goes into config.
func GenerateServiceToken() (token, hash string, err error) {
	id := uuid.New()

	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate secret: %w", err)
	}
	secret := hex.EncodeToString(secretBytes)

	token = fmt.Sprintf("%s%s_%s", serviceTokenPrefix, id.String(), secret)
	return token, HashServiceToken(token), nil
}

func HashServiceToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// IsServiceToken checks the token shape without looking it up.
func IsServiceToken(token string) bool {
	if len(token) < len(serviceTokenPrefix)+36+1+64 {
		return false
	}
	return token[:len(serviceTokenPrefix)] == serviceTokenPrefix
}
