// Package schema describes the JSON interface of the consent message service
// as a JSON Schema (draft 2020-12) document.
//
// Generate builds the document from the wire types. Published returns the
// copy shipped with the module (icrc21.schema.json). Equal compares two
// documents structurally, so a test can pin the two together.
package schema

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/invopop/jsonschema"
)

// ID is the $id of the interface document.
const ID = "https://github.com/ggoodman/consent-message-go/icrc21.schema.json"

// Definition names under $defs.
const (
	DefRequest            = "ConsentMessageRequest"
	DefSpec               = "ConsentMessageSpec"
	DefMetadata           = "ConsentMessageMetadata"
	DefDeviceSpec         = "DeviceSpec"
	DefConsentMessage     = "ConsentMessage"
	DefConsentInfo        = "ConsentInfo"
	DefErrorInfo          = "ErrorInfo"
	DefError              = "Icrc21Error"
	DefResponse           = "ConsentMessageResponse"
	DefSupportedStandard  = "SupportedStandard"
	DefSupportedStandards = "SupportedStandards"
)

// Generate returns the interface description.
func Generate() *jsonschema.Schema {
	return &jsonschema.Schema{
		Version:     jsonschema.Version,
		ID:          jsonschema.ID(ID),
		Title:       "ICRC-21 consent message interface",
		Description: "Requests and replies of icrc21_canister_call_consent_message and icrc10_supported_standards.",
		Definitions: jsonschema.Definitions{
			DefRequest: object(
				prop("method", &jsonschema.Schema{Type: "string"}),
				prop("arg", &jsonschema.Schema{Type: "string", ContentEncoding: "base64"}),
				prop("user_preferences", ref(DefSpec)),
			),
			DefSpec: objectOptional([]string{"metadata"},
				prop("metadata", ref(DefMetadata)),
				prop("device_spec", nullable(ref(DefDeviceSpec))),
			),
			DefMetadata: objectOptional([]string{"language"},
				prop("language", &jsonschema.Schema{Type: "string"}),
				prop("utc_offset_minutes", nullable(integer(math.MinInt16, math.MaxInt16))),
			),
			DefDeviceSpec: oneOf(
				variant("GenericDisplay", null()),
				variant("FieldsDisplay", null()),
				variant("LineDisplay", object(
					prop("characters_per_line", integer(0, math.MaxUint16)),
					prop("lines_per_page", integer(0, math.MaxUint16)),
				)),
			),
			DefConsentMessage: oneOf(
				variant("GenericDisplayMessage", &jsonschema.Schema{Type: "string"}),
				variant("FieldsDisplayMessage", object(
					prop("intent", &jsonschema.Schema{Type: "string"}),
					prop("fields", arrayOf(pair())),
				)),
				variant("LineDisplayMessage", object(
					prop("pages", arrayOf(object(
						prop("lines", arrayOf(&jsonschema.Schema{Type: "string"})),
					))),
				)),
			),
			DefConsentInfo: object(
				prop("metadata", ref(DefMetadata)),
				prop("consent_message", ref(DefConsentMessage)),
			),
			DefErrorInfo: object(
				prop("description", &jsonschema.Schema{Type: "string"}),
			),
			DefError: oneOf(
				variant("UnsupportedCanisterCall", ref(DefErrorInfo)),
				variant("ConsentMessageUnavailable", ref(DefErrorInfo)),
				variant("InsufficientPayment", ref(DefErrorInfo)),
				variant("GenericError", object(
					prop("description", &jsonschema.Schema{Type: "string"}),
					prop("error_code", &jsonschema.Schema{Type: "integer", Minimum: json.Number("0")}),
				)),
			),
			DefResponse: oneOf(
				variant("Ok", ref(DefConsentInfo)),
				variant("Err", ref(DefError)),
			),
			DefSupportedStandard: object(
				prop("name", &jsonschema.Schema{Type: "string"}),
				prop("url", &jsonschema.Schema{Type: "string", Format: "uri"}),
			),
			DefSupportedStandards: arrayOf(ref(DefSupportedStandard)),
		},
	}
}

// JSON returns Generate() encoded as indented JSON.
func JSON() ([]byte, error) {
	return json.MarshalIndent(Generate(), "", "  ")
}

type property struct {
	name   string
	schema *jsonschema.Schema
}

func prop(name string, s *jsonschema.Schema) property { return property{name, s} }

// object is a closed object whose properties are all required.
func object(props ...property) *jsonschema.Schema {
	required := make([]string, len(props))
	for i, p := range props {
		required[i] = p.name
	}
	return objectOptional(required, props...)
}

func objectOptional(required []string, props ...property) *jsonschema.Schema {
	s := &jsonschema.Schema{
		Type:                 "object",
		Properties:           jsonschema.NewProperties(),
		Required:             required,
		AdditionalProperties: jsonschema.FalseSchema,
	}
	for _, p := range props {
		s.Properties.Set(p.name, p.schema)
	}
	return s
}

// variant is a single-key object naming one arm of a tagged union.
func variant(tag string, body *jsonschema.Schema) *jsonschema.Schema {
	return object(prop(tag, body))
}

func oneOf(arms ...*jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{OneOf: arms}
}

func nullable(s *jsonschema.Schema) *jsonschema.Schema {
	return oneOf(null(), s)
}

func null() *jsonschema.Schema { return &jsonschema.Schema{Type: "null"} }

func ref(def string) *jsonschema.Schema {
	return &jsonschema.Schema{Ref: "#/$defs/" + def}
}

func integer(lo, hi int64) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:    "integer",
		Minimum: json.Number(strconv.FormatInt(lo, 10)),
		Maximum: json.Number(strconv.FormatInt(hi, 10)),
	}
}

func arrayOf(items *jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Items: items}
}

// pair is a two element [label, value] tuple.
func pair() *jsonschema.Schema {
	two := uint64(2)
	return &jsonschema.Schema{
		Type:        "array",
		PrefixItems: []*jsonschema.Schema{{Type: "string"}, {Type: "string"}},
		MinItems:    &two,
		MaxItems:    &two,
	}
}
