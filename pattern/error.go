package pattern

import "fmt"

// ParseError reports a malformed pattern string, tagged with the byte
// position at which parsing failed. A wrapping struct carrying positional
// context, rather than a bare sentinel, since the position is essential
// for callers to surface a useful message.
type ParseError struct {
	Pos     int
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("pattern error at position %d: %s", e.Pos, e.Message)
}
