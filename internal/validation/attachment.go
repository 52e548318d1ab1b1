// attachment.go validates uploaded certificate attachments: filename, size, and the
// content type sniffed from the leading bytes rather than the client's claim.
package validation

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxAttachmentSize applies when no upload limit is configured (10MB)
const DefaultMaxAttachmentSize = 10 * 1024 * 1024

// sniffLength is how many leading bytes are read to detect the content type
const sniffLength = 3072

// allowedAttachmentTypes lists the scan and document formats certificates are kept in
var allowedAttachmentTypes = []string{
	"application/pdf",
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/webp",
	"image/tiff",
	"text/plain",
}

// ValidateAttachmentName rejects filenames that try to address paths outside the upload
func ValidateAttachmentName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("attachment filename is required")
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("attachment filename contains invalid characters")
	}

	clean := filepath.Clean(strings.ReplaceAll(name, `\`, "/"))
	if filepath.IsAbs(clean) {
		return fmt.Errorf("absolute paths not allowed: %s", name)
	}
	// Windows drive letters, e.g. C:\scan.pdf
	if len(name) >= 3 && name[1] == ':' && (name[2] == '\\' || name[2] == '/') {
		return fmt.Errorf("absolute paths not allowed: %s", name)
	}
	if strings.Contains(clean, "..") {
		return fmt.Errorf("path traversal not allowed: %s", name)
	}
	return nil
}

// ValidateAttachmentSize checks size against maxSize, falling back to the default limit
func ValidateAttachmentSize(size, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = DefaultMaxAttachmentSize
	}
	if size <= 0 {
		return fmt.Errorf("attachment is empty")
	}
	if size > maxSize {
		return fmt.Errorf("attachment size exceeds maximum allowed size of %d bytes", maxSize)
	}
	return nil
}

// DetectAttachmentType sniffs the content type of r and checks it is an accepted format.
// It returns the detected type and a reader that replays the sniffed bytes.
func DetectAttachmentType(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLength)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return "", nil, fmt.Errorf("attachment is empty")
	}

	detected := mimetype.Detect(head)
	if !mimetype.EqualsAny(detected.String(), allowedAttachmentTypes...) {
		return "", nil, fmt.Errorf("unsupported attachment type %s", baseType(detected.String()))
	}

	return baseType(detected.String()), io.MultiReader(bytes.NewReader(head), r), nil
}

func baseType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		return strings.TrimSpace(contentType[:i])
	}
	return contentType
}
