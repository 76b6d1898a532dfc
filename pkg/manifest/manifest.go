// Package manifest appends one JSON line per downloaded image to an
// account's manifest file.
package manifest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Record describes one successful download. PostTime is nil when the post's
// publication time is unknown.
type Record struct {
	Account      string     `json:"account"`
	PostID       string     `json:"postId"`
	PostURL      string     `json:"postUrl"`
	ImageURL     string     `json:"imageUrl"`
	Filename     string     `json:"filename"`
	DownloadedAt time.Time  `json:"downloadedAt"`
	PostTime     *time.Time `json:"postTime"`
}

// Log is an append-only newline-delimited JSON file.
type Log struct {
	path string
}

// New returns a Log writing to path.
func New(path string) *Log {
	return &Log{path: path}
}

// Path returns the manifest file.
func (l *Log) Path() string {
	return l.path
}

// Ensure creates the manifest file empty when it does not exist yet.
func (l *Log) Ensure() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	return file.Close()
}

// Append writes rec as a single line and syncs it to disk before returning.
func (l *Log) Append(rec Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode manifest record: %w", err)
	}
	line = append(line, '\n')

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open manifest: %w", err)
	}
	if _, err := file.Write(line); err != nil {
		file.Close()
		return fmt.Errorf("failed to append manifest record: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("failed to sync manifest: %w", err)
	}
	return file.Close()
}

// Read decodes every record in the file at path, in append order.
func Read(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; scanner.Scan(); line++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return records, fmt.Errorf("manifest line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}
