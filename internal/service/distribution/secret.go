package distribution

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// linkSecretBytes is the entropy of a share link secret.
const linkSecretBytes = 32

// SecretSource produces grant secrets.
type SecretSource interface {
	// Code returns a short uppercase alphanumeric code of length n.
	Code(n int) (string, error)
	// Link returns a long opaque token for share links.
	Link() (string, error)
}

// RandomSecrets draws secrets from a cryptographic random reader.
type RandomSecrets struct {
	Reader io.Reader
}

// Code implements SecretSource. Bytes that would bias the alphabet are
// rejected and redrawn.
func (r RandomSecrets) Code(n int) (string, error) {
	limit := byte(256 - 256%len(codeAlphabet))
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := io.ReadFull(r.reader(), buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}

// Link implements SecretSource.
func (r RandomSecrets) Link() (string, error) {
	buf := make([]byte, linkSecretBytes)
	if _, err := io.ReadFull(r.reader(), buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func (r RandomSecrets) reader() io.Reader {
	if r.Reader == nil {
		return rand.Reader
	}
	return r.Reader
}
