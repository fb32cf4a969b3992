package kvstore

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound   = errors.New("key not found")
	ErrInvalidKey = errors.New("invalid key")
)

type InvalidKeyError struct {
	Key    string
	Reason string
}

type NotFoundError struct {
	Bucket string
	Key    string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("invalid key %q: %s", e.Key, e.Reason)
}

func (e *InvalidKeyError) Is(target error) bool {
	return target == ErrInvalidKey
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("key not found in %s: %s", e.Bucket, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// FileState is what the loader remembers about a source file it indexed.
type FileState struct {
	DocumentID  string    `json:"document_id"`
	ModTime     time.Time `json:"mod_time"`
	LastIndexed time.Time `json:"last_indexed"`
}

// Changed reports whether a file with the given modification time needs
// to be indexed again.
func (s FileState) Changed(modTime time.Time) bool {
	return modTime.After(s.ModTime)
}
