// Package store persists per-symbol daily series as JSON files.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"QuoteHarvester/internal/model"
)

// ErrCorrupt is returned (alongside an empty series) when a stored file
// exists but cannot be read or parsed.
var ErrCorrupt = errors.New("series file unreadable")

// SeriesStore loads and saves the daily series of a symbol.
type SeriesStore interface {
	Load(code string) (model.Series, error)
	Save(code string, series model.Series) error
}

// FileStore keeps one "<code>.json" file per symbol under Dir.
type FileStore struct {
	Dir string
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

// Path returns the file that holds code's series.
func (s *FileStore) Path(code string) string {
	return filepath.Join(s.Dir, sanitize(code)+".json")
}

// Load returns the stored series, or an empty one if the file does not
// exist. A file that cannot be read or decoded also yields an empty series,
// together with an error wrapping ErrCorrupt that callers treat as a warning.
func (s *FileStore) Load(code string) (model.Series, error) {
	data, err := os.ReadFile(s.Path(code))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.Series{}, nil
		}
		return model.Series{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, code, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return model.Series{}, nil
	}
	var series model.Series
	if err := json.Unmarshal(data, &series); err != nil {
		return model.Series{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, code, err)
	}
	if series == nil {
		series = model.Series{}
	}
	return series, nil
}

// Save overwrites the series file, creating Dir if needed. The write goes
// through a temp file and a rename so readers never see half a file.
func (s *FileStore) Save(code string, series model.Series) error {
	if series == nil {
		series = model.Series{}
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create series dir: %w", err)
	}
	data, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("encode series %s: %w", code, err)
	}

	tmp, err := os.CreateTemp(s.Dir, "."+sanitize(code)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write series %s: %w", code, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close series %s: %w", code, err)
	}
	if err := os.Rename(tmpName, s.Path(code)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename series %s: %w", code, err)
	}
	return nil
}

// sanitize keeps a symbol code usable as a file name.
func sanitize(code string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(code))
}
