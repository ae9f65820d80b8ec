package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
	_ "time/tzdata"
)

const (
	IndexFileName = "index.json"

	timestampLayout   = "1/2/2006, 3:04:05 PM"
	timestampLocation = "America/New_York"
)

// Entry records the samples fetched for one test-case URL.
type Entry struct {
	Key            string            `json:"key"`
	TestCaseGroup  string            `json:"testCaseGroup"`
	FetchTimestamp string            `json:"fetchTimestamp"`
	SampleFiles    map[string]string `json:"sampleFiles"`
}

// Index maps test-case URLs to their entries for one group.
type Index struct {
	path    string
	entries map[string]Entry
}

// LoadIndex reads the index at path. A missing file yields an empty index.
func LoadIndex(path string) (*Index, error) {
	idx := &Index{path: path, entries: map[string]Entry{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	if len(data) == 0 {
		return idx, nil
	}
	if err := json.Unmarshal(data, &idx.entries); err != nil {
		return nil, fmt.Errorf("failed to parse index %s: %w", path, err)
	}
	return idx, nil
}

func (i *Index) Path() string { return i.path }

func (i *Index) Len() int { return len(i.entries) }

func (i *Index) Has(testCaseURL string) bool {
	_, ok := i.entries[testCaseURL]
	return ok
}

func (i *Index) Get(testCaseURL string) (Entry, bool) {
	e, ok := i.entries[testCaseURL]
	return e, ok
}

// Put replaces the entry for testCaseURL.
func (i *Index) Put(testCaseURL string, e Entry) {
	i.entries[testCaseURL] = e
}

func (i *Index) Delete(testCaseURL string) {
	delete(i.entries, testCaseURL)
}

// URLs returns the indexed test-case URLs in sorted order.
func (i *Index) URLs() []string {
	urls := make([]string, 0, len(i.entries))
	for u := range i.entries {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// Save writes the index, replacing the previous file only once the new
// content is fully on disk.
func (i *Index) Save() error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(i.entries); err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(i.path), 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(i.path), "."+IndexFileName+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp index: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	if err := os.Rename(tmp.Name(), i.path); err != nil {
		return fmt.Errorf("failed to replace index: %w", err)
	}
	return nil
}

// Timestamp formats t the way fetch timestamps are recorded.
func Timestamp(t time.Time) string {
	loc, err := time.LoadLocation(timestampLocation)
	if err != nil {
		loc = time.UTC
	}
	return t.In(loc).Format(timestampLayout)
}
