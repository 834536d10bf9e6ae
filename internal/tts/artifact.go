package tts

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ArtifactName returns the file name for a fresh clip: tts_<uuid>.<ext>.
func ArtifactName(ext string) string {
	return fmt.Sprintf("tts_%s.%s", uuid.NewString(), ext)
}

// WithArtifact writes sp to a uniquely named file in dir (the system temp
// dir when empty), calls use with its path, then removes the file whether
// use succeeded, failed or panicked. A failed removal is logged, not
// returned.
func WithArtifact(dir string, sp *Speech, use func(path string) error) error {
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, ArtifactName(sp.Ext))

	if err := os.WriteFile(path, sp.Audio, 0o600); err != nil {
		return fmt.Errorf("writing speech artifact: %w", err)
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to remove speech artifact", "path", path, "error", err)
		}
	}()

	return use(path)
}
