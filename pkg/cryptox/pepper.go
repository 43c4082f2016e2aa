package cryptox

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// LoadOrCreatePepper reads the pepper stored at path, generating and
// persisting a fresh one when the file does not exist yet. Losing the pepper
// invalidates every stored client secret.
func LoadOrCreatePepper(path string) ([]byte, error) {
	path = filepath.Clean(path)

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			return nil, fmt.Errorf("pepper file %s is empty", path)
		}
		return raw, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read pepper: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create pepper dir: %w", err)
	}

	buf := make([]byte, keyLength)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	pepper := []byte(base64.RawURLEncoding.EncodeToString(buf))

	if err := os.WriteFile(path, pepper, 0o600); err != nil {
		return nil, fmt.Errorf("write pepper: %w", err)
	}
	return pepper, nil
}
