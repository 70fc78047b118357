package password

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"

	"golang.org/x/crypto/bcrypt"
)

const (
	saltBytes = 16

	// bcrypt rejects inputs longer than 72 bytes; the appended salt eats
	// into that budget.
	maxPasswordBytes = 72 - 2*saltBytes
)

// Hasher produces and verifies salted bcrypt hashes. The zero cost selects
// bcrypt.DefaultCost.
type Hasher struct {
	cost int
}

// NewHasher validates cost and returns a Hasher.
func NewHasher(cost int) (*Hasher, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, errors.New("invalid bcrypt cost")
	}
	return &Hasher{cost: cost}, nil
}

// NewSalt returns a fresh random salt, hex-encoded for storage next to the
// hash.
func NewSalt() (string, error) {
	buf := make([]byte, saltBytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Hash returns the bcrypt hash of password+salt.
func (h *Hasher) Hash(password, salt string) (string, error) {
	if password == "" {
		return "", errors.New("password must be non-empty")
	}
	if len(password) > maxPasswordBytes {
		return "", errors.New("password too long")
	}

	out, err := bcrypt.GenerateFromPassword([]byte(password+salt), h.cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Verify reports whether password+salt matches the stored hash. Malformed
// stored hashes verify false without error detail; the caller treats any
// mismatch as bad credentials.
func (h *Hasher) Verify(password, salt, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password+salt)) == nil
}
