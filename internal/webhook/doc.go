// Package webhook implements the signed-delivery receiver.
//
// A single POST endpoint accepts GitHub-style webhook deliveries. Each
// delivery is authenticated with an HMAC over the exact raw request body
// before anything else happens: the signature is computed by the sender over
// the original byte sequence, so the body must never be re-parsed and
// re-serialized prior to verification (whitespace, key order, and numeric
// formatting would all invalidate a correct signature).
//
// # Security Model
//
// - HMAC-SHA256 (X-Hub-Signature-256) preferred, HMAC-SHA1 (X-Hub-Signature)
//   accepted for legacy senders; either match admits the delivery
// - Constant-time digest comparison (crypto/hmac) to prevent timing attacks
// - Body size limits enforced before verification
// - The shared secret is never logged; an empty secret disables verification
//   and is warned about once at startup
//
// # Request Flow
//
//  1. POST arrives (any other method gets 405 with an Allow header)
//  2. Raw body read through a size limit (413 if exceeded)
//  3. Signature headers checked against both HMAC variants (401 on mismatch)
//  4. Payload decoded by content type; decode failures are captured into a
//     fallback payload rather than rejected, because the delivery is already
//     authenticated and must be recorded
//  5. Record pushed into the bounded in-memory store
//  6. 200 returned with the event type and delivery id
//
// A read-only GET endpoint exposes the most recent records behind an
// optional shared-token gate.
package webhook
