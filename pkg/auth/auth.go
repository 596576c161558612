// Package auth verifies signed webhook requests from the voice platform.
//
// The platform signs the post-call webhook with a header of the form
// "t=<unix_ts>,v0=<hex_hmac>" where the hash is an HMAC-SHA256 over the
// literal string "{t}.{raw_body}". Verification fails closed: any missing or
// malformed component is rejected. Callers distinguish failure modes via the
// sentinel errors for logging, but must surface a single unauthorized outcome.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimestampTolerance bounds how far a signature timestamp may drift from the
// verification clock, in either direction.
const TimestampTolerance = 30 * time.Minute

var (
	ErrMissingSignature   = errors.New("missing webhook signature")
	ErrMalformedSignature = errors.New("malformed webhook signature")
	ErrStaleTimestamp     = errors.New("webhook signature timestamp out of tolerance")
	ErrSignatureMismatch  = errors.New("webhook signature mismatch")
)

// VerifySignature validates the platform's HMAC signature against the raw
// request body. Returns nil only for a well-formed, in-tolerance, matching
// signature.
func VerifySignature(secret, header string, body []byte, now time.Time) error {
	if strings.TrimSpace(header) == "" {
		return ErrMissingSignature
	}

	ts, received, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	signedAt := time.Unix(ts, 0)
	if now.Sub(signedAt) > TimestampTolerance || signedAt.Sub(now) > TimestampTolerance {
		return ErrStaleTimestamp
	}

	expected := ComputeSignature(secret, ts, body)
	if !hmac.Equal([]byte(expected), []byte(received)) {
		return ErrSignatureMismatch
	}

	return nil
}

// ComputeSignature returns the hex HMAC-SHA256 of "{ts}.{body}" under secret.
// Exported so clients and tests can produce valid signatures.
func ComputeSignature(secret string, ts int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyAPIKey compares a presented API key against the expected key in
// constant time. An empty presented key is always rejected.
func VerifyAPIKey(expected, presented string) error {
	if presented == "" {
		return ErrMissingSignature
	}
	if !hmac.Equal([]byte(expected), []byte(presented)) {
		return ErrSignatureMismatch
	}
	return nil
}

// parseSignatureHeader splits "t=<ts>,v0=<hex>" into its components.
func parseSignatureHeader(header string) (int64, string, error) {
	parts := strings.Split(header, ",")
	if len(parts) != 2 {
		return 0, "", ErrMalformedSignature
	}

	tsPart, ok := strings.CutPrefix(parts[0], "t=")
	if !ok || tsPart == "" {
		return 0, "", ErrMalformedSignature
	}

	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return 0, "", ErrMalformedSignature
	}

	hash, ok := strings.CutPrefix(parts[1], "v0=")
	if !ok || hash == "" {
		return 0, "", ErrMalformedSignature
	}

	return ts, hash, nil
}
