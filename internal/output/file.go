// Package output writes a reading as a flat "Key Value" text dump named
// after the device address.
package output

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/mittyorz/infra-munin/internal/switchbot"
)

// FileName is the address with the ':' separators removed.
func FileName(address string) string {
	return strings.ReplaceAll(address, ":", "")
}

// Write replaces dir/FileName(address) with the reading. The dump is synced
// to a temporary file in dir and renamed into place, so a reader sees either
// the old dump or the complete new one, also after a crash. The file mode is
// 0644 less the process umask.
func Write(dir, address string, r switchbot.Reading) (string, error) {
	name := FileName(address)
	if name == "" {
		return "", fmt.Errorf("output: empty file name for address %q", address)
	}
	path := filepath.Join(dir, name)

	var buf bytes.Buffer
	if _, err := r.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("output: render %s: %w", name, err)
	}

	if err := renameio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("output: write %s: %w", path, err)
	}

	return path, nil
}
