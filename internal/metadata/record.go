// Package metadata holds the timestamped measurement records written next to
// a recording session and the reporters that publish them.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TimeLayout renders record timestamps as UTC with microseconds.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// Record is one measurement point: a name, a time stamp and its fields.
type Record struct {
	Time        string         `json:"time"`
	Measurement string         `json:"measurement"`
	Fields      map[string]any `json:"fields"`
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ReadFile loads the records stored at path. A missing file yields no
// records and no error.
func ReadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read metadata %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode metadata %s: %w", path, err)
	}
	return records, nil
}

// AppendFile appends records to the JSON list stored at path, creating the
// file and its directory when needed. The file is replaced atomically.
func AppendFile(path string, records ...Record) error {
	existing, err := ReadFile(path)
	if err != nil {
		return err
	}
	all := append(existing, records...)

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create metadata dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".meta_data-*.json")
	if err != nil {
		return fmt.Errorf("create temp metadata: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close metadata: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace metadata %s: %w", path, err)
	}
	return nil
}
