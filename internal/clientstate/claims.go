package clientstate

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DecodeExpiry extracts the expiry claim from a JWT without verifying the
// signature. The session manager only needs to know when to renew; the
// media backend is the one that actually validates the token.
//
// It never panics: any malformed input yields an error and the caller
// falls back to a fixed TTL.
func DecodeExpiry(token string) (time.Time, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("token does not have three segments")
	}

	payload, err := decodeSegment(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to decode payload: %w", err)
	}

	var claims struct {
		Exp *json.Number `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return time.Time{}, fmt.Errorf("payload is not valid JSON: %w", err)
	}
	if claims.Exp == nil {
		return time.Time{}, fmt.Errorf("payload has no exp claim")
	}

	// exp is NumericDate: seconds since epoch, possibly fractional.
	seconds, err := claims.Exp.Float64()
	if err != nil {
		return time.Time{}, fmt.Errorf("exp claim is not numeric: %w", err)
	}

	return time.UnixMilli(int64(seconds * 1000)), nil
}

// decodeSegment decodes a base64url JWT segment, repairing missing padding
// first since JWT segments are unpadded.
func decodeSegment(segment string) ([]byte, error) {
	if rem := len(segment) % 4; rem != 0 {
		segment += strings.Repeat("=", 4-rem)
	}
	return base64.URLEncoding.DecodeString(segment)
}
