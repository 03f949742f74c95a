package session

import "encoding/base64"

func encodeSecret(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
