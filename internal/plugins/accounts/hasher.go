package accounts

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argon2id parameters for new password hashes, following OWASP
// recommendations: memory=64MB, iterations=3, parallelism=4.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024 // 64 MB in KiB
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// hashPassword creates an argon2id hash of the given password in the
// standard PHC string format: $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>.
// The format is self-contained, so verification needs no separate salt
// storage.
func hashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads, b64Salt, b64Hash)

	return encoded, nil
}

// verifyPassword checks a plaintext password against a stored hash.
// Argon2id hashes are verified with their embedded parameters. Rows
// imported from the previous system hold bare unsalted SHA-256 digests;
// those verify through the legacy path and should be rehashed on the next
// successful login (see isLegacyHash).
func verifyPassword(password, encodedHash string) bool {
	if isLegacyHash(encodedHash) {
		return verifyLegacyPassword(password, encodedHash)
	}

	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false
	}

	var memory uint32
	var iterations uint32
	var parallelism uint8
	_, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism)
	if err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expectedHash)))

	// Constant-time comparison to prevent timing attacks.
	return subtle.ConstantTimeCompare(expectedHash, computedHash) == 1
}

// isLegacyHash reports whether a stored hash is a bare hex-encoded SHA-256
// digest from the previous system (64 hex characters, no PHC prefix).
func isLegacyHash(encodedHash string) bool {
	if strings.HasPrefix(encodedHash, "$") || len(encodedHash) != 64 {
		return false
	}
	_, err := hex.DecodeString(encodedHash)
	return err == nil
}

// verifyLegacyPassword checks a password against an unsalted SHA-256
// digest. Kept only for credential rows imported from the previous system.
func verifyLegacyPassword(password, storedHex string) bool {
	stored, err := hex.DecodeString(storedHex)
	if err != nil {
		return false
	}
	sum := sha256.Sum256([]byte(password))
	return subtle.ConstantTimeCompare(stored, sum[:]) == 1
}
