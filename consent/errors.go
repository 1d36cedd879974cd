package consent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ErrorKind classifies consent message failures.
type ErrorKind int

const (
	// KindGeneric is an application defined failure with a numeric code.
	KindGeneric ErrorKind = iota
	// KindUnsupportedOperation means the requested method is not supported or
	// its argument could not be decoded.
	KindUnsupportedOperation
	// KindInsufficientResources is reserved for payment failures.
	KindInsufficientResources
	// KindMessageUnavailable is reserved for operations whose consent message
	// cannot currently be produced.
	KindMessageUnavailable
	// KindInvalidConfiguration means the display preference is unusable, e.g.
	// a zero line width.
	KindInvalidConfiguration
)

// KindInvalidConfiguration travels as a GenericError carrying
// ErrorCodeInvalidConfiguration and a description starting with
// InvalidConfigurationPrefix. Both must be present for it to decode back to
// KindInvalidConfiguration; any other GenericError stays KindGeneric.
const (
	ErrorCodeInvalidConfiguration uint64 = 1
	InvalidConfigurationPrefix           = "Invalid configuration: "
)

func (k ErrorKind) String() string {
	switch k {
	case KindGeneric:
		return "GenericError"
	case KindUnsupportedOperation:
		return "UnsupportedCanisterCall"
	case KindInsufficientResources:
		return "InsufficientPayment"
	case KindMessageUnavailable:
		return "ConsentMessageUnavailable"
	case KindInvalidConfiguration:
		return "InvalidConfiguration"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is a consent message failure. It is returned as a value, never
// raised, and is encoded as the Err arm of a Result on the wire.
type Error struct {
	Kind        ErrorKind
	Description string
	// Code is only meaningful for KindGeneric.
	Code uint64
}

// Kind sentinels for use with errors.Is.
var (
	ErrUnsupportedOperation  = &Error{Kind: KindUnsupportedOperation}
	ErrInsufficientResources = &Error{Kind: KindInsufficientResources}
	ErrMessageUnavailable    = &Error{Kind: KindMessageUnavailable}
	ErrInvalidConfiguration  = &Error{Kind: KindInvalidConfiguration}
)

// UnsupportedOperation returns a KindUnsupportedOperation error.
func UnsupportedOperation(description string) *Error {
	return &Error{Kind: KindUnsupportedOperation, Description: description}
}

// InsufficientResources returns a KindInsufficientResources error.
func InsufficientResources(description string) *Error {
	return &Error{Kind: KindInsufficientResources, Description: description}
}

// MessageUnavailable returns a KindMessageUnavailable error.
func MessageUnavailable(description string) *Error {
	return &Error{Kind: KindMessageUnavailable, Description: description}
}

// InvalidConfiguration returns a KindInvalidConfiguration error.
func InvalidConfiguration(description string) *Error {
	return &Error{Kind: KindInvalidConfiguration, Description: description}
}

// GenericError returns a KindGeneric error with an application defined code.
func GenericError(code uint64, description string) *Error {
	return &Error{Kind: KindGeneric, Description: description, Code: code}
}

func (e *Error) Error() string {
	if e.Kind == KindGeneric {
		return fmt.Sprintf("consent: %s(%d): %s", e.Kind, e.Code, e.Description)
	}
	return fmt.Sprintf("consent: %s: %s", e.Kind, e.Description)
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

type errorInfoJSON struct {
	Description string `json:"description"`
}

type genericErrorJSON struct {
	Description string `json:"description"`
	ErrorCode   uint64 `json:"error_code"`
}

func (e Error) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case KindGeneric:
		return json.Marshal(map[string]genericErrorJSON{
			"GenericError": {Description: e.Description, ErrorCode: e.Code},
		})
	case KindInvalidConfiguration:
		return json.Marshal(map[string]genericErrorJSON{
			"GenericError": {Description: InvalidConfigurationPrefix + e.Description, ErrorCode: ErrorCodeInvalidConfiguration},
		})
	case KindUnsupportedOperation, KindInsufficientResources, KindMessageUnavailable:
		return json.Marshal(map[string]errorInfoJSON{
			e.Kind.String(): {Description: e.Description},
		})
	default:
		return nil, fmt.Errorf("consent: unknown error kind %d", int(e.Kind))
	}
}

func (e *Error) UnmarshalJSON(data []byte) error {
	tag, body, err := decodeVariant(data)
	if err != nil {
		return fmt.Errorf("error: %w", err)
	}
	switch tag {
	case "GenericError":
		var g genericErrorJSON
		if err := json.Unmarshal(body, &g); err != nil {
			return fmt.Errorf("error: %s: %w", tag, err)
		}
		*e = Error{Kind: KindGeneric, Description: g.Description, Code: g.ErrorCode}
		if desc, ok := strings.CutPrefix(g.Description, InvalidConfigurationPrefix); ok && g.ErrorCode == ErrorCodeInvalidConfiguration {
			*e = Error{Kind: KindInvalidConfiguration, Description: desc}
		}
		return nil
	case "UnsupportedCanisterCall", "InsufficientPayment", "ConsentMessageUnavailable":
		var info errorInfoJSON
		if err := json.Unmarshal(body, &info); err != nil {
			return fmt.Errorf("error: %s: %w", tag, err)
		}
		kind := map[string]ErrorKind{
			"UnsupportedCanisterCall":   KindUnsupportedOperation,
			"InsufficientPayment":       KindInsufficientResources,
			"ConsentMessageUnavailable": KindMessageUnavailable,
		}[tag]
		*e = Error{Kind: kind, Description: info.Description}
		return nil
	default:
		return fmt.Errorf("error: unknown variant %q", tag)
	}
}

// Result is the wire form of a consent message response: exactly one of Ok
// or Err is set.
type Result struct {
	Ok  *ConsentInfo
	Err *Error
}

func (r Result) MarshalJSON() ([]byte, error) {
	switch {
	case r.Ok != nil && r.Err == nil:
		return json.Marshal(map[string]*ConsentInfo{"Ok": r.Ok})
	case r.Err != nil && r.Ok == nil:
		return json.Marshal(map[string]*Error{"Err": r.Err})
	default:
		return nil, fmt.Errorf("consent: result must hold exactly one of Ok or Err")
	}
}

func (r *Result) UnmarshalJSON(data []byte) error {
	tag, body, err := decodeVariant(data)
	if err != nil {
		return fmt.Errorf("result: %w", err)
	}
	*r = Result{}
	switch tag {
	case "Ok":
		r.Ok = new(ConsentInfo)
		return json.Unmarshal(body, r.Ok)
	case "Err":
		r.Err = new(Error)
		return json.Unmarshal(body, r.Err)
	default:
		return fmt.Errorf("result: unknown variant %q", tag)
	}
}
