package webhook

import (
	"encoding/json"
	"net/url"
	"strings"
)

// rawExcerptLimit bounds how much of an undecodable body is preserved in the
// fallback payload.
const rawExcerptLimit = 2000

// decodePayload turns the raw body into a structured value based on the
// declared content type. The returned error reports a decode failure for
// logging/metrics only: in that case the returned value is a fallback
// envelope carrying the error message and a bounded excerpt of the body, and
// the delivery must still be stored. Authenticated deliveries are never
// dropped because of a malformed body.
func decodePayload(raw []byte, contentType string) (any, error) {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "application/x-www-form-urlencoded"):
		return decodeForm(raw)
	default:
		// JSON declared, unknown, or missing content type: the body is
		// treated as JSON either way.
		return decodeJSON(raw)
	}
}

func decodeJSON(raw []byte) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fallbackPayload(raw, err), err
	}
	return v, nil
}

// decodeForm parses URL-encoded bodies. GitHub's form-encoded deliveries put
// the JSON document under a "payload" key, so that key is preferred; failing
// that the whole body is tried as JSON, and as a last resort the form pairs
// themselves become the payload.
func decodeForm(raw []byte) (any, error) {
	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return decodeJSON(raw)
	}

	if vs, ok := values["payload"]; ok && len(vs) > 0 {
		var v any
		if err := json.Unmarshal([]byte(vs[0]), &v); err != nil {
			return fallbackPayload(raw, err), err
		}
		return v, nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		return v, nil
	}

	form := make(map[string]any, len(values))
	for k, vs := range values {
		form[k] = vs[0]
	}
	return map[string]any{"form": form}, nil
}

func fallbackPayload(raw []byte, err error) map[string]any {
	excerpt := raw
	if len(excerpt) > rawExcerptLimit {
		excerpt = excerpt[:rawExcerptLimit]
	}
	return map[string]any{
		"parse_error": err.Error(),
		"raw":         string(excerpt),
	}
}
