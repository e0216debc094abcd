package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// validSignature checks the X-Line-Signature header: base64 of the HMAC
// SHA-256 of the raw request body, keyed with the channel secret.
func validSignature(body []byte, channelSecret, signature string) bool {
	decoded, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	return hmac.Equal(decoded, mac.Sum(nil))
}
