package ticketid

import (
	"crypto/rand"
	"fmt"
)

// alphabet is the 36-symbol set ticket suffixes are drawn from.
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Generator produces server-side ticket identifiers: a fixed prefix followed
// by a random suffix from the 36-symbol alphabet. With the default 9-symbol
// suffix the space is 36^9 (~1.0e14), so collisions are negligible; the
// unique index on tickets.ticket_id is the backstop.
type Generator struct {
	prefix    string
	suffixLen int
}

func New(prefix string, suffixLen int) *Generator {
	if suffixLen < 9 {
		suffixLen = 9
	}
	return &Generator{prefix: prefix, suffixLen: suffixLen}
}

// limit is the largest multiple of len(alphabet) below 256. Bytes at or
// above it are rejected so every symbol is equally likely; reducing mod 36
// directly would favour the first four symbols.
const limit = 256 - 256%len(alphabet)

// Next returns a fresh ticket ID, e.g. "SL7Q2M0XKDN".
func (g *Generator) Next() (string, error) {
	out := make([]byte, 0, g.suffixLen)
	buf := make([]byte, g.suffixLen)
	for len(out) < g.suffixLen {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == g.suffixLen {
				break
			}
		}
	}
	return g.prefix + string(out), nil
}
