package logging

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation bounds the size and retention of a RotatingJSONLStore.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// RotatingJSONLStore is a JSONL trail whose file is rolled over by
// lumberjack. Queries read the backups oldest first, then the live file.
type RotatingJSONLStore struct {
	mu   sync.Mutex
	w    *lumberjack.Logger
	path string
}

func NewRotatingJSONLStore(path string, rot Rotation) (*RotatingJSONLStore, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	return &RotatingJSONLStore{
		path: path,
		w: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    rot.MaxSizeMB,
			MaxBackups: rot.MaxBackups,
			MaxAge:     rot.MaxAgeDays,
			Compress:   rot.Compress,
		},
	}, nil
}

func (s *RotatingJSONLStore) Append(_ context.Context, rec LogRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(append(line, '\n'))
	return err
}

func (s *RotatingJSONLStore) Query(ctx context.Context, q LogQuery) ([]LogRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	files, err := s.files()
	if err != nil {
		return nil, err
	}
	var res []LogRecord
	for _, name := range files {
		recs, err := readFile(ctx, name, q)
		if os.IsNotExist(err) {
			// removed by retention between listing and opening
			continue
		}
		if err != nil {
			return nil, err
		}
		res = append(res, recs...)
	}
	return q.tail(res), nil
}

// files lists lumberjack backups (name-<timestamp>.ext, optionally .gz)
// in rotation order followed by the live file.
func (s *RotatingJSONLStore) files() ([]string, error) {
	ext := filepath.Ext(s.path)
	prefix := strings.TrimSuffix(s.path, ext) + "-"
	matches, err := filepath.Glob(prefix + "*")
	if err != nil {
		return nil, err
	}
	var backups []string
	for _, m := range matches {
		if strings.HasSuffix(m, ext) || strings.HasSuffix(m, ext+".gz") {
			backups = append(backups, m)
		}
	}
	sort.Strings(backups)
	return append(backups, s.path), nil
}

func readFile(ctx context.Context, name string, q LogQuery) ([]LogRecord, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	var r io.Reader = f
	if strings.HasSuffix(name, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}
	return decodeLines(ctx, r, q)
}

func (s *RotatingJSONLStore) Close() error { return s.w.Close() }
