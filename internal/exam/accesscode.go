package exam

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

const (
	AccessCodeLen = 6
	// no 0/O, 1/I to keep codes readable aloud
	accessCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	maxCodeAttempts    = 5
)

// NewAccessCode returns a random code from accessCodeAlphabet.
func NewAccessCode() (string, error) {
	buf := make([]byte, AccessCodeLen)
	size := big.NewInt(int64(len(accessCodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("access code: %w", err)
		}
		buf[i] = accessCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// withFreshCode calls insert with new codes until it stops reporting
// ErrConflict or the attempts run out.
func withFreshCode(gen func() (string, error), insert func(code string) error) error {
	var err error
	for i := 0; i < maxCodeAttempts; i++ {
		code, gerr := gen()
		if gerr != nil {
			return gerr
		}
		if err = insert(code); !errors.Is(err, ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("allocate access code after %d attempts: %w", maxCodeAttempts, err)
}
