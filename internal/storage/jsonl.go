package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"liquidityShield/internal/model"
)

// JsonlSink appends each grouped snapshot as one JSON line.
type JsonlSink struct {
	path string
	mu   sync.Mutex
}

func NewJsonlSink(path string) *JsonlSink {
	return &JsonlSink{path: path}
}

type snapshotLine struct {
	TakenAt   string                  `json:"taken_at"`
	Positions []model.GroupedPosition `json:"positions"`
}

// PutSnapshot appends the snapshot with a capture timestamp.
func (s *JsonlSink) PutSnapshot(ctx context.Context, grouped []model.GroupedPosition) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	line, err := json.Marshal(snapshotLine{
		TakenAt:   time.Now().UTC().Format(time.RFC3339Nano),
		Positions: grouped,
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	writer := bufio.NewWriter(file)
	if _, err := writer.Write(line); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
