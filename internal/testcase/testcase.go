// Package testcase discovers test-case groups and the resolver URLs they list.
package testcase

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// URLPrefix marks the lines of a test-case file that are resolver requests.
const URLPrefix = "getit.library.nyu.edu/resolve?"

// ErrUnknownGroup is returned for a group with no directory.
var ErrUnknownGroup = errors.New("unknown test case group")

// Groups lists the test-case groups, the subdirectories of dir.
func Groups(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read test case directory: %w", err)
	}

	var groups []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			groups = append(groups, e.Name())
		}
	}
	sort.Strings(groups)
	return groups, nil
}

// ValidateGroup checks group against the discovered groups.
func ValidateGroup(group string, groups []string) error {
	for _, g := range groups {
		if g == group {
			return nil
		}
	}
	return fmt.Errorf("%w: %q is not a recognized test group. Please select from one of the following: %s",
		ErrUnknownGroup, group, strings.Join(groups, ", "))
}

// URLs reads every *.txt file below dir/group and returns the resolver URLs
// they contain, sorted and without duplicates.
func URLs(dir, group string) ([]string, error) {
	root := filepath.Join(dir, group)
	seen := map[string]bool{}
	var urls []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".txt" {
			return nil
		}
		found, err := readURLs(path)
		if err != nil {
			return err
		}
		for _, u := range found {
			if !seen[u] {
				seen[u] = true
				urls = append(urls, u)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read test cases for %s: %w", group, err)
	}

	sort.Strings(urls)
	return urls, nil
}

func readURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.HasPrefix(line, URLPrefix) {
			urls = append(urls, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", path, err)
	}
	return urls, nil
}
