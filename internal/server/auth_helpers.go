package server

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const (
	apiKeyPrefix     = "hab_"
	liveAPIKeyPrefix = apiKeyPrefix + "live_"
)

// hashAPIKey is the storage form of an API key; raw keys are never stored.
func hashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return fmt.Sprintf("%x", hash)
}

// truncateHash shortens a hash for display and logs.
func truncateHash(hash string) string {
	if len(hash) <= 16 {
		return hash
	}
	return hash[:16] + "..."
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func newAPIKey() (string, error) {
	secret, err := randomHex(24)
	if err != nil {
		return "", err
	}
	return liveAPIKeyPrefix + secret, nil
}
