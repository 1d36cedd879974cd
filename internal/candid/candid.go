// Package candid adapts the Candid codec to the single text argument the
// consent operations take. Messages may carry further arguments after the
// first; they are decoded and ignored, as Candid's argument subtyping allows.
package candid

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/aviate-labs/agent-go/candid/idl"
)

var (
	// ErrMalformed is returned when the input is not a well-formed Candid message.
	ErrMalformed = errors.New("candid: malformed message")
	// ErrTypeMismatch is returned when the first argument is missing or is not text.
	ErrTypeMismatch = errors.New("candid: type mismatch")
)

// EncodeText encodes s as a Candid message with a single text argument.
func EncodeText(s string) []byte {
	b, err := idl.Encode([]idl.Type{new(idl.TextType)}, []any{s})
	if err != nil {
		panic(fmt.Sprintf("candid: encode text: %v", err))
	}
	return b
}

// DecodeText returns the first argument of a Candid message, which must be
// of type text.
func DecodeText(data []byte) (string, error) {
	_, values, err := idl.Decode(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(values) == 0 {
		return "", fmt.Errorf("%w: want a text argument, got none", ErrTypeMismatch)
	}
	s, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("%w: want text, got %T", ErrTypeMismatch, values[0])
	}
	if !utf8.ValidString(s) {
		return "", fmt.Errorf("%w: text is not valid UTF-8", ErrMalformed)
	}
	return s, nil
}
