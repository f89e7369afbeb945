// Package snapshot writes and reads the timestamped JSON files a crawl produces.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"brightermonday-scraper/models"
)

const (
	prefix     = "brightermondayjobs_"
	ext        = ".json"
	timeLayout = "20060102-150405"
)

// Pattern matches snapshot file names, e.g. brightermondayjobs_20161114-103302.json
var Pattern = regexp.MustCompile(`^brightermondayjobs_[0-9]{8}-[0-9]{6}\.json$`)

// ErrNoSnapshots is returned by Latest when a directory holds no snapshot
var ErrNoSnapshots = errors.New("no snapshot files found")

// FileName returns the snapshot file name for a crawl started at t
func FileName(t time.Time) string {
	return prefix + t.Format(timeLayout) + ext
}

// Timestamp parses the start time out of a snapshot file name
func Timestamp(name string) (time.Time, error) {
	base := filepath.Base(name)
	if !Pattern.MatchString(base) {
		return time.Time{}, fmt.Errorf("not a snapshot file name: %q", base)
	}
	stamp := base[len(prefix) : len(base)-len(ext)]
	return time.ParseInLocation(timeLayout, stamp, time.Local)
}

// Write serializes listings into dir under the name for startedAt.
// Snapshots are write-once: an existing file is never overwritten.
func Write(dir string, startedAt time.Time, listings []models.Listing) (string, error) {
	if listings == nil {
		listings = []models.Listing{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(listings); err != nil {
		return "", fmt.Errorf("failed to encode listings: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, FileName(startedAt))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close snapshot: %w", err)
	}

	return path, nil
}

// Load reads a snapshot, keeping the listings in file order
func Load(path string) ([]models.Listing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var listings []models.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", filepath.Base(path), err)
	}
	return listings, nil
}

// List returns the snapshot files in dir, oldest first
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !Pattern.MatchString(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	// the timestamp layout sorts lexically
	sort.Strings(paths)
	return paths, nil
}

// Latest returns the most recent snapshot in dir
func Latest(dir string) (string, error) {
	paths, err := List(dir)
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "", fmt.Errorf("%s: %w", dir, ErrNoSnapshots)
	}
	return paths[len(paths)-1], nil
}
