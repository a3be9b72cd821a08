package blueprint

import (
	"errors"
	"fmt"
)

// Parse failure kinds. Use errors.Is against a returned error to classify it.
var (
	ErrUnexpectedEOF   = errors.New("unexpected end of input")
	ErrUnexpectedChar  = errors.New("unexpected character")
	ErrInvalidNumber   = errors.New("invalid number")
	ErrUnclosedString  = errors.New("unclosed string")
	ErrInputTooLarge   = errors.New("input too large")
	ErrTrailingContent = errors.New("trailing content after root value")
	ErrNestedTooDeep   = errors.New("tables nested too deep")
	ErrInvalidEscape   = errors.New("invalid escape sequence")
)

// ParseError reports where parsing stopped and why.
type ParseError struct {
	Kind   error
	Offset int  // byte offset into the input
	Char   rune // offending character, 0 when not applicable
}

func (e *ParseError) Error() string {
	if e.Char != 0 {
		return fmt.Sprintf("blueprint: %v %q at offset %d", e.Kind, e.Char, e.Offset)
	}
	return fmt.Sprintf("blueprint: %v at offset %d", e.Kind, e.Offset)
}

func (e *ParseError) Unwrap() error { return e.Kind }
