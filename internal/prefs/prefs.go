// Package prefs persists reel's per-user preferences: the UI theme and the
// generation settings used on the last run. Preferences are stored in
// ~/.config/reel/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/reel/internal/fal"
)

// Prefs holds user preferences for reel.
type Prefs struct {
	Theme      string `toml:"theme"`
	LastModel  string `toml:"last_model,omitempty"`
	LastRes    string `toml:"last_resolution,omitempty"`
	LastAspect string `toml:"last_aspect_ratio,omitempty"`
}

const (
	defaultPrefsPath = "~/.config/reel/prefs.toml"
	defaultTheme     = "Nightfox"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from path, falling back to defaults when the file is
// missing or unreadable. Preferences are never worth failing a run over.
func Load(path string) (Prefs, error) {
	prefs := Prefs{Theme: defaultTheme}

	resolved, err := resolvePath(path)
	if err != nil {
		return prefs, nil
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prefs, nil
		}
		return prefs, nil // Graceful degradation
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return prefs, nil // Graceful degradation
	}
	if err := toml.Unmarshal(bytes, &prefs); err != nil {
		return Prefs{Theme: defaultTheme}, nil // Graceful degradation
	}

	if strings.TrimSpace(prefs.Theme) == "" {
		prefs.Theme = defaultTheme
	}
	// Stale values from an older enum set are dropped rather than replayed.
	if _, err := fal.ParseResolution(prefs.LastRes); err != nil {
		prefs.LastRes = ""
	}
	if _, err := fal.ParseAspectRatio(prefs.LastAspect); err != nil {
		prefs.LastAspect = ""
	}
	return prefs, nil
}

// Remember records the generation settings of a finished run.
func (p *Prefs) Remember(model string, res fal.Resolution, aspect fal.AspectRatio) {
	p.LastModel = strings.TrimSpace(model)
	p.LastRes = string(res)
	p.LastAspect = string(aspect)
}

// Save writes preferences atomically, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	bytes, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := renameio.WriteFile(resolved, bytes, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
