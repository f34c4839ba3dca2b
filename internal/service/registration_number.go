package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// NumberSource draws candidate registration numbers.
type NumberSource interface {
	Next() (string, error)
}

// RandomDigits draws uniformly distributed fixed-length numeric strings.
type RandomDigits struct {
	Length int
}

func (r RandomDigits) Next() (string, error) {
	length := r.Length
	if length <= 0 {
		length = 8
	}
	buf := make([]byte, length)
	ten := big.NewInt(10)
	for i := range buf {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("draw registration number: %w", err)
		}
		buf[i] = byte('0' + n.Int64())
	}
	return string(buf), nil
}

// NumberSourceFunc adapts a function to NumberSource.
type NumberSourceFunc func() (string, error)

func (f NumberSourceFunc) Next() (string, error) { return f() }
