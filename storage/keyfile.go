package storage

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/jmcleod/switchboard/internal/util"
)

// KeySize is the length of a wrapping key file's decoded contents.
const KeySize = util.AESKeySize

// LoadOrCreateKey reads a base64 encoded KeySize-byte key from path. When the
// file does not exist a fresh random key is generated and written with 0600
// permissions.
func LoadOrCreateKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("decoding key file %s: %w", path, err)
		}
		if len(key) != KeySize {
			return nil, fmt.Errorf("key file %s: invalid key length %d (expected %d)", path, len(key), KeySize)
		}
		return key, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading key file %s: %w", path, err)
	}

	key, err := util.NewAESKey()
	if err != nil {
		return nil, err
	}
	encoded := base64.StdEncoding.EncodeToString(key)
	if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
		return nil, fmt.Errorf("writing key file %s: %w", path, err)
	}
	return key, nil
}
