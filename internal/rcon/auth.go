package rcon

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// saltSize is the number of cryptographically random salt bytes generated
// by Hash.
const saltSize = 16

// ErrMalformedRecord indicates a credential record's on-disk form could not
// be parsed (wrong number of fields, bad base64). It is never returned by
// Verify, which treats any parse failure as a plain verification failure.
var ErrMalformedRecord = errors.New("rcon: malformed credential record")

// Record is a stored (salt, expected_digest) pair, or the zero value to
// mean "no credential configured" (insecure mode: any candidate verifies).
type Record struct {
	Salt           []byte
	ExpectedDigest []byte
}

// Configured reports whether r holds an actual credential, as opposed to
// the sentinel "none" record.
func (r Record) Configured() bool {
	return len(r.Salt) > 0 && len(r.ExpectedDigest) > 0
}

// Hash generates a fresh Record for secret: a random 16-byte salt from a
// cryptographic entropy source, and digest = SHA-256(salt || secret). It is
// used offline to provision a credential, never on the request path.
func Hash(secret string) (Record, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return Record{}, fmt.Errorf("generate salt: %w", err)
	}

	digest := digestOf(salt, secret)
	return Record{Salt: salt, ExpectedDigest: digest}, nil
}

// Verify recomputes SHA-256(record.Salt || candidate) and compares it to
// record.ExpectedDigest in time independent of the number of matching
// leading bytes. If record is the sentinel "none" record, verification
// always succeeds (insecure mode). candidate is never logged or retained
// beyond this call.
func Verify(candidate string, record Record) bool {
	if !record.Configured() {
		return true
	}

	digest := digestOf(record.Salt, candidate)
	return subtle.ConstantTimeCompare(digest, record.ExpectedDigest) == 1
}

func digestOf(salt []byte, secret string) []byte {
	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(secret))
	return h.Sum(nil)
}

// EncodeRecord renders a Record in its on-disk form: base64(salt) + ":" +
// base64(digest).
func EncodeRecord(r Record) string {
	return base64.StdEncoding.EncodeToString(r.Salt) + ":" + base64.StdEncoding.EncodeToString(r.ExpectedDigest)
}

// DecodeRecord parses the on-disk credential form. An empty or blank string
// yields the sentinel "none" record (insecure mode), not an error. Any
// other malformed input (missing separator, bad base64) is reported via
// ErrMalformedRecord; it is the caller's responsibility to decide whether a
// malformed configured record is fatal at startup — Verify itself never
// surfaces this error, it simply never matches.
func DecodeRecord(s string) (Record, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return Record{}, nil
	}

	saltB64, digestB64, ok := strings.Cut(s, ":")
	if !ok {
		return Record{}, fmt.Errorf("%q: %w", s, ErrMalformedRecord)
	}

	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return Record{}, fmt.Errorf("decode salt: %w: %w", err, ErrMalformedRecord)
	}

	digest, err := base64.StdEncoding.DecodeString(digestB64)
	if err != nil {
		return Record{}, fmt.Errorf("decode digest: %w: %w", err, ErrMalformedRecord)
	}

	if len(salt) == 0 || len(digest) == 0 {
		return Record{}, fmt.Errorf("empty salt or digest: %w", ErrMalformedRecord)
	}

	return Record{Salt: salt, ExpectedDigest: digest}, nil
}
