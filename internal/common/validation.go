package common

import (
	"fmt"
	"slices"
)

// SupportedFormats are the output formats the CLI can render.
var SupportedFormats = []string{"json", "text", "markdown"}

// ValidateOutputFormat validates format against the supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// ValidateConcurrency rejects worker counts outside 1..limit.
func ValidateConcurrency(n, limit int) error {
	if n < 1 || n > limit {
		return fmt.Errorf("concurrency must be between 1 and %d, got %d", limit, n)
	}
	return nil
}
