package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"hash"
	"strings"
)

// errInvalidSignature is the only verification error surfaced to callers.
// Kept generic to avoid leaking which check failed.
var errInvalidSignature = errors.New("invalid signature")

// verifySignature checks the delivered signature headers against HMACs of
// the raw request body. sig256 and sig1 are the values of the
// X-Hub-Signature-256 and X-Hub-Signature headers ("sha256=<hex>" and
// "sha1=<hex>"); either one matching admits the delivery. Comparison is
// constant-time via hmac.Equal.
func verifySignature(body []byte, sig256, sig1, secret string) error {
	if sig256 == "" && sig1 == "" {
		return errInvalidSignature
	}

	if sig256 != "" {
		expected := computeHMAC(sha256.New, body, secret)
		if delivered, err := parseSignature(sig256, "sha256="); err == nil && hmac.Equal(delivered, expected) {
			return nil
		}
	}

	if sig1 != "" {
		expected := computeHMAC(sha1.New, body, secret)
		if delivered, err := parseSignature(sig1, "sha1="); err == nil && hmac.Equal(delivered, expected) {
			return nil
		}
	}

	return errInvalidSignature
}

// parseSignature extracts the raw digest bytes from a signature header
// value, stripping the algorithm prefix when present. Plain hex without a
// prefix is also accepted.
func parseSignature(signature, prefix string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(signature, prefix))
}

func computeHMAC(h func() hash.Hash, body []byte, secret string) []byte {
	mac := hmac.New(h, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

// signatureHex returns the hex HMAC digest of body. Used for diagnostics
// and tests; digests are safe to log, the secret is not.
func signatureHex(h func() hash.Hash, body []byte, secret string) string {
	return hex.EncodeToString(computeHMAC(h, body, secret))
}
