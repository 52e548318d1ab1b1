// Package storage holds certificate attachments in a pluggable object store.
//
// Backends register themselves with the factory from an init() function in
// their own package:
//
//	func init() {
//	    storage.Register("mybackend", func(cfg *config.Config) (storage.Storage, error) {
//	        return NewMyBackend(cfg)
//	    })
//	}
//
// cmd/server blank-imports every backend so the configured one can be selected
// by name at startup.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no object is stored under a key.
	ErrNotFound = errors.New("object not found")

	// ErrNoURL is returned by backends that cannot mint direct download URLs.
	// Callers stream the object through Open instead.
	ErrNoURL = errors.New("backend does not issue download urls")
)

// Storage is the contract every attachment backend implements.
type Storage interface {
	// Put stores the content under key and returns what was written.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*Object, error)

	// Open returns a reader for the object and its attributes.
	Open(ctx context.Context, key string) (io.ReadCloser, *Object, error)

	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// DownloadURL returns a URL valid for ttl, or ErrNoURL.
	DownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)
}

// Object describes a stored attachment.
type Object struct {
	Key         string
	Size        int64
	ContentType string
	// SHA256 is the hex digest of the content, when the backend knows it
	SHA256 string
}

// ReadinessKey is probed by /ready to check the backend answers.
const ReadinessKey = ".readiness-probe"

// AttachmentKey builds certificates/<org>/<cert>/<uuid>-<name>. Directory parts
// of the client supplied filename are dropped.
func AttachmentKey(orgID, certificateID int64, filename string) string {
	return fmt.Sprintf("certificates/%d/%d/%s-%s", orgID, certificateID, uuid.NewString(), SanitizeFilename(filename))
}

// SanitizeFilename reduces a client filename to a safe single path segment.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, name)
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return "attachment"
	}
	if len(name) > 128 {
		name = name[len(name)-128:]
	}
	return name
}
