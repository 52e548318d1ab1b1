package checksum

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

const (
	// echo -n "hello" | sha256sum
	helloSHA256 = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	emptySHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
)

func TestSHA256(t *testing.T) {
	if got := SHA256([]byte("hello")); got != helloSHA256 {
		t.Errorf("SHA256(hello) = %q, want %q", got, helloSHA256)
	}
	if got := SHA256(nil); got != emptySHA256 {
		t.Errorf("SHA256(nil) = %q, want %q", got, emptySHA256)
	}
}

func TestCalculateSHA256(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"hello", "hello", helloSHA256},
		{"empty string", "", emptySHA256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateSHA256(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("CalculateSHA256() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("CalculateSHA256(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	t.Run("binary data matches SHA256", func(t *testing.T) {
		data := []byte{0x25, 0x50, 0x44, 0x46, 0x00, 0xFF}
		got, err := CalculateSHA256(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("CalculateSHA256() error: %v", err)
		}
		if got != SHA256(data) {
			t.Errorf("CalculateSHA256() = %q, want %q", got, SHA256(data))
		}
	})
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestCalculateSHA256_ReadError(t *testing.T) {
	if _, err := CalculateSHA256(errReader{}); err == nil {
		t.Fatal("expected error from failing reader")
	}
}

func TestWriter_TeesStream(t *testing.T) {
	var dst bytes.Buffer
	w := NewWriter()

	n, err := io.Copy(io.MultiWriter(&dst, w), strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("io.Copy: %v", err)
	}
	if n != 5 || dst.String() != "hello" {
		t.Errorf("copied %d bytes %q, want 5 bytes %q", n, dst.String(), "hello")
	}
	if got := w.Sum(); got != helloSHA256 {
		t.Errorf("Sum() = %q, want %q", got, helloSHA256)
	}
}

func TestWriter_EmptySum(t *testing.T) {
	if got := NewWriter().Sum(); got != emptySHA256 {
		t.Errorf("Sum() = %q, want %q", got, emptySHA256)
	}
}
