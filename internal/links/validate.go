package links

import (
	"fmt"
	"net/url"
)

const (
	MinCodeLength       = 6
	MaxCodeLength       = 8
	GeneratedCodeLength = 6
	MaxURLLength        = 2048
)

// reservedCodes are path segments routed to something other than a redirect.
var reservedCodes = map[string]struct{}{
	"api":     {},
	"code":    {},
	"healthz": {},
}

// ValidCode reports whether code is 6 to 8 ASCII letters or digits.
// Matching is case-sensitive and nothing is trimmed.
func ValidCode(code string) bool {
	if len(code) < MinCodeLength || len(code) > MaxCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !isAlnum(code[i]) {
			return false
		}
	}
	return true
}

// IsReserved reports whether code collides with a fixed route segment.
func IsReserved(code string) bool {
	_, ok := reservedCodes[code]
	return ok
}

func isAlnum(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	default:
		return false
	}
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%w: url cannot be empty", ErrInvalidURL)
	}
	if len(rawURL) > MaxURLLength {
		return fmt.Errorf("%w: url too long (max %d characters)", ErrInvalidURL, MaxURLLength)
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: invalid url format", ErrInvalidURL)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%w: url scheme must be http or https", ErrInvalidURL)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%w: url must include host", ErrInvalidURL)
	}
	return nil
}

func validateCode(code string) error {
	if !ValidCode(code) {
		return ErrInvalidCode
	}
	if IsReserved(code) {
		return ErrReservedCode
	}
	return nil
}
