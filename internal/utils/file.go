// Package utils holds the file helpers shared by the CLI commands.
package utils

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// textExtensions are the résumé and job description files read without a warning.
var textExtensions = []string{".txt", ".md", ".markdown", ".text"}

// ValidateInputFile checks that filename names a regular file no larger than
// maxSize bytes. A maxSize of zero disables the size check.
func ValidateInputFile(filename string, maxSize int64) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	info, err := os.Stat(filename)
	switch {
	case os.IsNotExist(err):
		return fmt.Errorf("file does not exist: %s", filename)
	case err != nil:
		return fmt.Errorf("cannot access file %s: %w", filename, err)
	case info.IsDir():
		return fmt.Errorf("path is a directory, not a file: %s", filename)
	case !info.Mode().IsRegular():
		return fmt.Errorf("not a regular file: %s", filename)
	case maxSize > 0 && info.Size() > maxSize:
		return fmt.Errorf("file %s is %s, larger than the %s limit",
			filename, FormatFileSize(info.Size()), FormatFileSize(maxSize))
	}
	return nil
}

// DecodeText turns raw file bytes into résumé text. UTF-8 and UTF-16 files
// with a byte order mark are accepted and the mark is dropped. Without a
// mark the content must be valid UTF-8. CRLF line endings become LF.
func DecodeText(raw []byte) (string, error) {
	decoded, _, err := transform.Bytes(unicode.BOMOverride(encoding.UTF8Validator), raw)
	if err != nil {
		return "", fmt.Errorf("content is not UTF-8 text: %w", err)
	}
	decoded = bytes.ReplaceAll(decoded, []byte("\r\n"), []byte("\n"))
	return string(decoded), nil
}

// EnsureParentDir creates the directory that will hold filename.
func EnsureParentDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("cannot create directory %s: %w", dir, err)
	}
	return nil
}

// IsTextFile reports whether filename has a plain text extension.
func IsTextFile(filename string) bool {
	return slices.Contains(textExtensions, strings.ToLower(filepath.Ext(filename)))
}

// FormatFileSize renders size in IEC units, e.g. "1.5 MiB".
func FormatFileSize(size int64) string {
	if size < 0 {
		size = 0
	}
	return humanize.IBytes(uint64(size))
}
