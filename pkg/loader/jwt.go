package loader

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

func trimBearer(input string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), "Bearer "))
}

// IsJWT reports whether input looks like a JWT: three non-empty base64url
// parts whose first two decode to JSON objects. A "Bearer " prefix is
// allowed.
func IsJWT(input string) bool {
	parts := strings.Split(trimBearer(input), ".")
	if len(parts) != 3 {
		return false
	}
	for i, part := range parts {
		if part == "" {
			return false
		}
		raw, err := base64.RawURLEncoding.DecodeString(part)
		if err != nil {
			return false
		}
		if i < 2 {
			var obj map[string]any
			if json.Unmarshal(raw, &obj) != nil {
				return false
			}
		}
	}
	return true
}

// DecodeJWT splits a token into its header, payload and signature. The
// signature is not verified and is kept as its base64url text.
func DecodeJWT(input string) (map[string]any, error) {
	parts := strings.Split(trimBearer(input), ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid JWT: expected 3 parts, got %d", len(parts))
	}
	header, err := decodeSegment(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid JWT header: %w", err)
	}
	payload, err := decodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid JWT payload: %w", err)
	}
	return map[string]any{
		"header":    header,
		"payload":   payload,
		"signature": parts[2],
	}, nil
}

// Claims returns the payload of a token.
func Claims(token string) (map[string]any, error) {
	decoded, err := DecodeJWT(token)
	if err != nil {
		return nil, err
	}
	return decoded["payload"].(map[string]any), nil
}

func decodeSegment(seg string) (map[string]any, error) {
	raw, err := base64.RawURLEncoding.DecodeString(seg)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
