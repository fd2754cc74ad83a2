package security

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Request body limits.
const (
	DefaultMaxBodySize  = 1 << 20
	DefaultMaxJSONDepth = 32
)

// Body validation errors.
var (
	ErrBodyTooLarge = errors.New("request body exceeds maximum size")
	ErrJSONTooDeep  = errors.New("JSON nesting exceeds maximum depth")
	ErrInvalidJSON  = errors.New("invalid JSON")
)

// ReadBody reads at most limit bytes from r and checks the JSON nesting
// depth. Non-positive limits use the defaults.
func ReadBody(r io.Reader, limit, depth int) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxBodySize
	}
	data, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return nil, err
	}
	if len(data) > limit {
		return nil, fmt.Errorf("%w: max %d bytes", ErrBodyTooLarge, limit)
	}
	if err := ValidateJSONDepth(data, depth); err != nil {
		return nil, err
	}
	return data, nil
}

// ValidateJSONDepth checks that data does not nest deeper than limit
// levels. Empty input is valid.
func ValidateJSONDepth(data []byte, limit int) error {
	if limit <= 0 {
		limit = DefaultMaxJSONDepth
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	depth := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidJSON, err)
		}
		switch tok {
		case json.Delim('{'), json.Delim('['):
			depth++
			if depth > limit {
				return fmt.Errorf("%w: depth %d (max %d)", ErrJSONTooDeep, depth, limit)
			}
		case json.Delim('}'), json.Delim(']'):
			depth--
		}
	}
}
