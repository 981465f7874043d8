package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/resist/pkg/domain"
)

var (
	// DefaultMaxIDSize is the longest entity ID accepted from the outside.
	DefaultMaxIDSize = 128
	// EnvMaxIDSize is the environment variable to override the default
	EnvMaxIDSize = "RESIST_MAX_ID_SIZE"
)

var (
	ErrEmptyID     = errors.New("entity id is empty")
	ErrIDTooLarge  = errors.New("entity id exceeds maximum allowed size")
	ErrInvalidUTF8 = errors.New("entity id contains invalid UTF-8 sequences")
	ErrControlChar = errors.New("entity id contains control characters")
)

// SanitizeEntityID validates an entity ID received from a scenario file, an HTTP
// request or an MCP tool call. Surrounding whitespace is trimmed; anything else
// suspicious is rejected rather than repaired so IDs stay stable across requests.
func SanitizeEntityID(raw string) (domain.EntityID, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", ErrEmptyID
	}

	limit := getMaxIDSize()
	if len(id) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrIDTooLarge, len(id), limit)
	}

	if !utf8.ValidString(id) {
		return "", ErrInvalidUTF8
	}

	// ANSI escapes, NUL and friends poison logs and terminals.
	for _, r := range id {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("%w: %q", ErrControlChar, id)
		}
	}
	return domain.EntityID(id), nil
}

func getMaxIDSize() int {
	if val := os.Getenv(EnvMaxIDSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxIDSize
}
