// Package storage keeps generated contract PDFs and product images on local
// disk and answers the disk-space / age statistics shown in the admin UI.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned when a named file does not exist in the store.
var ErrNotFound = errors.New("file not found")

// Store is a flat directory of managed files.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

// clean strips any path components so a request can never escape the store.
func clean(name string) string {
	return filepath.Base(filepath.Clean(name))
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, clean(name))
}

func (s *Store) Save(name string, data []byte) (string, error) {
	p := s.path(name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", clean(name), err)
	}
	return p, nil
}

func (s *Store) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *Store) Delete(name string) error {
	err := os.Remove(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

// FileInfo describes one stored PDF.
type FileInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// ListPDFs returns the stored PDFs, newest first.
func (s *Store) ListPDFs() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".pdf") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ModTime.After(files[j].ModTime) })
	return files, nil
}

// Bucket is one age band of the disk statistics.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
	Bytes int64  `json:"bytes"`
}

// Stats summarizes the stored PDFs by age of their modify time.
type Stats struct {
	TotalFiles int      `json:"totalFiles"`
	TotalBytes int64    `json:"totalBytes"`
	Buckets    []Bucket `json:"buckets"`
}

var bucketBounds = []struct {
	label string
	max   time.Duration
}{
	{"<1wk", 7 * 24 * time.Hour},
	{"1wk-2mo", 60 * 24 * time.Hour},
	{"2-3mo", 90 * 24 * time.Hour},
	{"3-6mo", 180 * 24 * time.Hour},
	{">6mo", 1<<63 - 1},
}

// PDFStats buckets stored PDFs by age relative to now, computed purely from
// file modify time.
func (s *Store) PDFStats(now time.Time) (*Stats, error) {
	files, err := s.ListPDFs()
	if err != nil {
		return nil, err
	}
	stats := &Stats{Buckets: make([]Bucket, len(bucketBounds))}
	for i, b := range bucketBounds {
		stats.Buckets[i].Label = b.label
	}
	for _, f := range files {
		stats.TotalFiles++
		stats.TotalBytes += f.Size
		age := now.Sub(f.ModTime)
		for i, b := range bucketBounds {
			if age < b.max {
				stats.Buckets[i].Count++
				stats.Buckets[i].Bytes += f.Size
				break
			}
		}
	}
	return stats, nil
}
