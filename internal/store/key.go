package store

import (
	"crypto/md5"
	"encoding/hex"
	"path/filepath"
)

// Key returns the content address of a test-case URL.
func Key(testCaseURL string) string {
	sum := md5.Sum([]byte(testCaseURL))
	return hex.EncodeToString(sum[:])
}

// SamplePath is the sample file location relative to the samples root,
// sharded by the first character of the key.
func SamplePath(group, service, key string) string {
	return filepath.Join(group, service, key[:1], key+".html")
}
