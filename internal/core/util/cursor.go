package util

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"strings"
)

type cursorData struct {
	Datetime string `json:"datetime"`
	ID       int    `json:"id,omitempty"`
}

func cursorSignature(encoded string) string {
	mac := hmac.New(sha256.New, []byte(os.Getenv("CURSOR_SECRET_KEY")))
	mac.Write([]byte(encoded))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// EncodeCursor signs the (created_at, id) keyset position so clients cannot
// tamper with admin pagination boundaries.
func EncodeCursor(date string, id int) string {
	data := cursorData{Datetime: date, ID: id}
	jsonData, _ := json.Marshal(data)
	encoded := base64.StdEncoding.EncodeToString(jsonData)

	return encoded + "." + cursorSignature(encoded)
}

func DecodeCursor(token string) (string, int, error) {
	parts := strings.Split(token, ".")

	if len(parts) != 2 {
		return "", 0, errors.New("invalid cursor format")
	}

	if !hmac.Equal([]byte(parts[1]), []byte(cursorSignature(parts[0]))) {
		return "", 0, errors.New("invalid cursor signature")
	}

	decoded, err := base64.StdEncoding.DecodeString(parts[0])

	if err != nil {
		return "", 0, err
	}

	var cursor cursorData

	if err := json.Unmarshal(decoded, &cursor); err != nil {
		return "", 0, err
	}

	return cursor.Datetime, cursor.ID, nil
}
