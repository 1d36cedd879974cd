package consentservice

import (
	"fmt"

	"github.com/ggoodman/consent-message-go/consent"
	"github.com/ggoodman/consent-message-go/internal/candid"
)

// Description is the human-readable effect of one decoded call. The composer
// renders it according to the caller's display preference.
type Description struct {
	// Effect is a noun phrase naming what the call produces, e.g. "greeting text".
	Effect string
	// Text is the concrete effect, e.g. "Hello, Alice!".
	Text string
	// Intent is the title line of a fields display message.
	Intent string
	// Fields are the labelled argument values of a fields display message.
	Fields []consent.Field
}

// Operation describes a single callable method for which consent messages
// can be produced.
type Operation interface {
	// Name is the method name matched against ConsentMessageRequest.Method.
	Name() string
	// Describe decodes the encoded argument and describes its effect. Any
	// error is reported to the caller as an unsupported call.
	Describe(arg []byte) (Description, error)
}

// Decoder decodes an encoded method argument into A.
type Decoder[A any] func(arg []byte) (A, error)

// Describer formats a decoded argument into its Description.
type Describer[A any] func(arg A) Description

type typedOperation[A any] struct {
	name     string
	decode   Decoder[A]
	describe Describer[A]
}

// NewOperation builds an Operation from a typed argument decoder and a
// formatter for its effect.
func NewOperation[A any](name string, decode Decoder[A], describe Describer[A]) Operation {
	return &typedOperation[A]{name: name, decode: decode, describe: describe}
}

func (o *typedOperation[A]) Name() string { return o.name }

func (o *typedOperation[A]) Describe(arg []byte) (Description, error) {
	a, err := o.decode(arg)
	if err != nil {
		return Description{}, fmt.Errorf("decode %s argument: %w", o.name, err)
	}
	return o.describe(a), nil
}

// GreetMethod is the method name of the reference greeting operation.
const GreetMethod = "greet"

// GreetText returns the greeting produced by the greet method.
func GreetText(name string) string {
	return fmt.Sprintf("Hello, %s!", name)
}

// Greet returns the reference operation: a greet method taking a single
// Candid text argument.
func Greet() Operation {
	return NewOperation[string](GreetMethod, candid.DecodeText, func(name string) Description {
		return Description{
			Effect: "greeting text",
			Text:   GreetText(name),
			Intent: "Produce greeting text",
			Fields: []consent.Field{{Label: "Name", Value: name}},
		}
	})
}
