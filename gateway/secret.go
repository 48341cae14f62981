package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/awnumar/memguard"
)

// rawJSON is a request body that is already encoded.
type rawJSON []byte

const hexDigits = "0123456789abcdef"

// encodeCreateKey renders req as the body of POST /admin/keys inside a locked
// buffer so the key material is never copied into the garbage-collected
// heap. The caller destroys the buffer.
func encodeCreateKey(req CreateKeyRequest) (*memguard.LockedBuffer, error) {
	head, err := json.Marshal(struct {
		Name     string `json:"name"`
		Provider string `json:"provider"`
	}{req.Name, req.Provider})
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}
	head = head[:len(head)-1] // reopen the object
	const field = `,"key_value":"`

	buf := memguard.NewBuffer(len(head) + len(field) + escapedLen(req.KeyValue) + len(`"}`))
	b := buf.Bytes()
	n := copy(b, head)
	n += copy(b[n:], field)
	n += writeEscaped(b[n:], req.KeyValue)
	copy(b[n:], `"}`)
	return buf, nil
}

func escapedLen(s []byte) int {
	n := 0
	for _, c := range s {
		switch {
		case c == '"' || c == '\\':
			n += 2
		case c < 0x20:
			n += 6
		default:
			n++
		}
	}
	return n
}

// writeEscaped writes s as the contents of a JSON string into dst, which must
// hold escapedLen(s) bytes, and returns the number of bytes written.
func writeEscaped(dst, s []byte) int {
	n := 0
	for _, c := range s {
		switch {
		case c == '"' || c == '\\':
			dst[n], dst[n+1] = '\\', c
			n += 2
		case c < 0x20:
			copy(dst[n:], `\u00`)
			dst[n+4] = hexDigits[c>>4]
			dst[n+5] = hexDigits[c&0xf]
			n += 6
		default:
			dst[n] = c
			n++
		}
	}
	return n
}
