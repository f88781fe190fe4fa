// Package otp drives the one-time code challenge that makes a captured
// signature binding.
package otp

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
)

// CodeLength is the number of digits in an issued code.
const CodeLength = 6

const codeSpace = 1_000_000

// largest multiple of codeSpace that fits in a uint32; values at or above
// it are rejected to keep the distribution uniform.
const rejectAbove = (1 << 32) / codeSpace * codeSpace

// CodeFunc returns a fresh fixed-width numeric code.
type CodeFunc func() (string, error)

// GenerateCode reads entropy from r and returns a uniformly distributed
// six digit code, leading zeros included.
func GenerateCode(r io.Reader) (string, error) {
	var buf [4]byte
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return "", fmt.Errorf("read entropy: %w", err)
		}
		n := binary.BigEndian.Uint32(buf[:])
		if n >= rejectAbove {
			continue
		}
		return fmt.Sprintf("%0*d", CodeLength, n%codeSpace), nil
	}
}

// NewCodeFunc binds GenerateCode to r. A nil reader means crypto/rand.
func NewCodeFunc(r io.Reader) CodeFunc {
	if r == nil {
		r = rand.Reader
	}
	return func() (string, error) { return GenerateCode(r) }
}
