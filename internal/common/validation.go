package common

import (
	"fmt"
	"slices"
	"strings"

	"resumecvpro/internal/errors"
	"resumecvpro/internal/types"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return errors.NewValidationError(errors.ErrCodeInvalidFormat,
		fmt.Sprintf("unsupported output format '%s'. Supported formats: %v", format, supportedFormats), nil)
}

// ParseDownloadFormat accepts pdf or docx, case-insensitively. Empty means no download.
func ParseDownloadFormat(s string) (types.DownloadFormat, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	f := types.DownloadFormat(s)
	if !f.Valid() {
		return "", errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("unsupported download format '%s'. Supported formats: [pdf docx]", s), nil)
	}
	return f, nil
}
