// Package security provides validation, sanitization, and limits for the refresh package.
package security

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jdziat/simple-refresh/pkg/core"
)

// Security limits and configuration
const (
	// MaxKindNameLength is the maximum length for refresher kind names
	MaxKindNameLength = 64

	// MinMaxPause and MaxMaxPause bound the configurable pause window
	MinMaxPause = time.Second
	MaxMaxPause = 24 * time.Hour

	// MinInterval and MaxInterval bound refresher polling intervals
	MinInterval = 100 * time.Millisecond
	MaxInterval = 24 * time.Hour

	// MaxErrorMessageLength is the maximum length for logged or stored error messages
	MaxErrorMessageLength = 4096

	// MaxLabelLength caps element labels taken from activity reports
	MaxLabelLength = 256

	// MaxPayloadSize is the largest response body a fetcher will read (8MB)
	MaxPayloadSize = 8 << 20
)

// validKindName matches alphanumeric, hyphens, underscores, and dots
var validKindName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_\-\.]*$`)

// ValidateKind validates a refresher kind name
func ValidateKind(kind core.Kind) error {
	name := string(kind)
	if name == "" {
		return core.ErrInvalidKind
	}
	if len(name) > MaxKindNameLength {
		return core.ErrKindTooLong
	}
	if !validKindName.MatchString(name) {
		return core.ErrInvalidKind
	}
	return nil
}

// SanitizeErrorMessage truncates and sanitizes error messages for storage
func SanitizeErrorMessage(msg string) string {
	return sanitize(msg, MaxErrorMessageLength)
}

// SanitizeLabel strips control characters and truncates an element label.
func SanitizeLabel(label string) string {
	return strings.TrimSpace(sanitize(label, MaxLabelLength))
}

func sanitize(msg string, limit int) string {
	if msg == "" {
		return ""
	}

	// Remove any null bytes or control characters (except newlines)
	var sanitized strings.Builder
	sanitized.Grow(len(msg))

	for _, r := range msg {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			sanitized.WriteRune(r)
		}
	}

	result := sanitized.String()

	if utf8.RuneCountInString(result) > limit {
		runes := []rune(result)
		result = string(runes[:limit-3]) + "..."
	}

	return result
}

// ClampMaxPause ensures the pause window is within limits
func ClampMaxPause(d time.Duration) time.Duration {
	if d < MinMaxPause {
		return MinMaxPause
	}
	if d > MaxMaxPause {
		return MaxMaxPause
	}
	return d
}

// ClampInterval ensures a polling interval is within limits
func ClampInterval(d time.Duration) time.Duration {
	if d < MinInterval {
		return MinInterval
	}
	if d > MaxInterval {
		return MaxInterval
	}
	return d
}
