package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/five82/reel/internal/lifecycle"
)

// writeOutcomes renders one JSON object per line. A file target is replaced
// atomically so a crashed run never leaves half a result file behind.
func writeOutcomes(stdout io.Writer, path string, outcomes []lifecycle.Outcome) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, o := range outcomes {
		if err := enc.Encode(o); err != nil {
			return fmt.Errorf("encode outcome %d: %w", o.Index, err)
		}
	}

	if path == "" {
		if _, err := stdout.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("write outcomes: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := renameio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write outcomes: %w", err)
	}
	return nil
}
