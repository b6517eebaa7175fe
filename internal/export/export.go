// Package export writes context packets to disk as zstd-compressed
// JSON, for offline inspection and replay of what the engine handed
// downstream.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"ace/internal/allocator"
)

// Exporter writes packets into a target directory.
type Exporter struct {
	dir string
}

// NewExporter creates an exporter rooted at dir (created on demand).
func NewExporter(dir string) *Exporter {
	return &Exporter{dir: dir}
}

// WritePacket persists a packet as <dir>/packet-<unixnano>.json.zst and
// returns the file path.
func (e *Exporter) WritePacket(packet *allocator.ContextPacket) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	path := filepath.Join(e.dir, fmt.Sprintf("packet-%d.json.zst", time.Now().UnixNano()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	if err := writeCompressed(f, packet); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func writeCompressed(w io.Writer, packet *allocator.ContextPacket) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("init zstd writer: %w", err)
	}

	if err := json.NewEncoder(enc).Encode(packet); err != nil {
		enc.Close()
		return fmt.Errorf("encode packet: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush packet: %w", err)
	}
	return nil
}

// ReadPacket loads a packet previously written by WritePacket.
func ReadPacket(path string) (*allocator.ContextPacket, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("init zstd reader: %w", err)
	}
	defer dec.Close()

	var packet allocator.ContextPacket
	if err := json.NewDecoder(dec).Decode(&packet); err != nil {
		return nil, fmt.Errorf("decode packet: %w", err)
	}
	return &packet, nil
}
