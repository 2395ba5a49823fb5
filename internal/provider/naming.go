package provider

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const contentIDLen = 16

// ContentID derives a stable identifier from semantic input text.
// The same text always yields the same id, across processes and restarts.
func ContentID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:contentIDLen]
}

// ArtifactPath names an artifact inside dir as <prefix>_<contentID>.<ext>
func ArtifactPath(dir, prefix, text, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	return filepath.Join(dir, fmt.Sprintf("%s_%s.%s", prefix, ContentID(text), ext))
}

// Reusable reports whether a previous run already left a non-empty artifact at path
func Reusable(path string, cacheEnabled bool) bool {
	if !cacheEnabled {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular() && fi.Size() > 0
}

// WriteAtomic writes the artifact through a temp file in the same directory and
// renames it into place, so an interrupted write never leaves a partial file
// under the final name.
func WriteAtomic(path string, write func(f *os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "create artifact dir")
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp artifact")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp artifact")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrap(err, "rename artifact")
	}
	return nil
}

// TempSibling returns a temp path next to path that a subprocess can write to
// before Promote moves it into place. The extension is kept so tools that
// infer the container from the name still work.
func TempSibling(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".partial" + ext
}

// Promote renames a finished temp file onto its final name
func Promote(tmp, path string) error {
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "promote artifact")
	}
	return nil
}
