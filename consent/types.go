package consent

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DeviceKind enumerates the display preferences a caller may request.
type DeviceKind int

const (
	// GenericDisplay requests a free-form text message.
	GenericDisplay DeviceKind = iota
	// FieldsDisplay requests a structured intent + fields message.
	FieldsDisplay
	// LineDisplay requests text laid out in fixed-width lines and pages.
	LineDisplay
)

func (k DeviceKind) String() string {
	switch k {
	case GenericDisplay:
		return "GenericDisplay"
	case FieldsDisplay:
		return "FieldsDisplay"
	case LineDisplay:
		return "LineDisplay"
	default:
		return fmt.Sprintf("DeviceKind(%d)", int(k))
	}
}

// DeviceSpec is the caller's display preference. A nil *DeviceSpec is
// treated as GenericDisplay.
type DeviceSpec struct {
	Kind DeviceKind

	// CharactersPerLine and LinesPerPage are only meaningful for LineDisplay.
	CharactersPerLine uint16
	LinesPerPage      uint16
}

// NewGenericDisplay returns a GenericDisplay preference.
func NewGenericDisplay() *DeviceSpec { return &DeviceSpec{Kind: GenericDisplay} }

// NewFieldsDisplay returns a FieldsDisplay preference.
func NewFieldsDisplay() *DeviceSpec { return &DeviceSpec{Kind: FieldsDisplay} }

// NewLineDisplay returns a LineDisplay preference with the given geometry.
func NewLineDisplay(charactersPerLine, linesPerPage uint16) *DeviceSpec {
	return &DeviceSpec{Kind: LineDisplay, CharactersPerLine: charactersPerLine, LinesPerPage: linesPerPage}
}

type lineDisplayJSON struct {
	CharactersPerLine uint16 `json:"characters_per_line"`
	LinesPerPage      uint16 `json:"lines_per_page"`
}

// MarshalJSON encodes the preference as a single-key variant object.
func (d DeviceSpec) MarshalJSON() ([]byte, error) {
	switch d.Kind {
	case GenericDisplay, FieldsDisplay:
		return json.Marshal(map[string]any{d.Kind.String(): nil})
	case LineDisplay:
		return json.Marshal(map[string]lineDisplayJSON{
			"LineDisplay": {CharactersPerLine: d.CharactersPerLine, LinesPerPage: d.LinesPerPage},
		})
	default:
		return nil, fmt.Errorf("consent: unknown device kind %d", int(d.Kind))
	}
}

// UnmarshalJSON decodes a single-key variant object.
func (d *DeviceSpec) UnmarshalJSON(data []byte) error {
	tag, body, err := decodeVariant(data)
	if err != nil {
		return fmt.Errorf("device_spec: %w", err)
	}
	switch tag {
	case "GenericDisplay":
		*d = DeviceSpec{Kind: GenericDisplay}
	case "FieldsDisplay":
		*d = DeviceSpec{Kind: FieldsDisplay}
	case "LineDisplay":
		var ld lineDisplayJSON
		if err := json.Unmarshal(body, &ld); err != nil {
			return fmt.Errorf("device_spec: LineDisplay: %w", err)
		}
		*d = DeviceSpec{Kind: LineDisplay, CharactersPerLine: ld.CharactersPerLine, LinesPerPage: ld.LinesPerPage}
	default:
		return fmt.Errorf("device_spec: unknown variant %q", tag)
	}
	return nil
}

// Metadata carries the locale of a consent message.
type Metadata struct {
	Language         string `json:"language"`
	UTCOffsetMinutes *int16 `json:"utc_offset_minutes"`
}

// ConsentMessageSpec is the caller's rendering preference.
type ConsentMessageSpec struct {
	Metadata   Metadata    `json:"metadata"`
	DeviceSpec *DeviceSpec `json:"device_spec"`
}

// ConsentMessageRequest asks for the consent message of a single call.
type ConsentMessageRequest struct {
	// Method is the name of the operation the caller intends to invoke.
	Method string `json:"method"`
	// Arg is the encoded argument of that operation.
	Arg             []byte             `json:"arg"`
	UserPreferences ConsentMessageSpec `json:"user_preferences"`
}

// Field is a single (label, value) pair of a fields display message. It is
// encoded as a two element array.
type Field struct {
	Label string
	Value string
}

func (f Field) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{f.Label, f.Value})
}

func (f *Field) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("field: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("field: want [label, value], got %d elements", len(pair))
	}
	f.Label, f.Value = pair[0], pair[1]
	return nil
}

// FieldsDisplayMessage is a structured message: an intent (title) and an
// ordered list of fields.
type FieldsDisplayMessage struct {
	Intent string  `json:"intent"`
	Fields []Field `json:"fields"`
}

// LineDisplayPage is one screen of a line display message.
type LineDisplayPage struct {
	Lines []string `json:"lines"`
}

// LineDisplayMessage is a paginated message for fixed-size displays.
type LineDisplayMessage struct {
	Pages []LineDisplayPage `json:"pages"`
}

// ConsentMessage holds exactly one of its variants.
type ConsentMessage struct {
	Generic *string
	Fields  *FieldsDisplayMessage
	Lines   *LineDisplayMessage
}

// NewGenericMessage returns a plain text consent message.
func NewGenericMessage(text string) ConsentMessage { return ConsentMessage{Generic: &text} }

// NewFieldsMessage returns a structured consent message.
func NewFieldsMessage(intent string, fields ...Field) ConsentMessage {
	return ConsentMessage{Fields: &FieldsDisplayMessage{Intent: intent, Fields: append([]Field{}, fields...)}}
}

// NewLineMessage returns a paginated consent message.
func NewLineMessage(pages []LineDisplayPage) ConsentMessage {
	return ConsentMessage{Lines: &LineDisplayMessage{Pages: pages}}
}

func (m ConsentMessage) MarshalJSON() ([]byte, error) {
	switch {
	case m.Generic != nil && m.Fields == nil && m.Lines == nil:
		return json.Marshal(map[string]string{"GenericDisplayMessage": *m.Generic})
	case m.Fields != nil && m.Generic == nil && m.Lines == nil:
		return json.Marshal(map[string]*FieldsDisplayMessage{"FieldsDisplayMessage": m.Fields})
	case m.Lines != nil && m.Generic == nil && m.Fields == nil:
		return json.Marshal(map[string]*LineDisplayMessage{"LineDisplayMessage": m.Lines})
	default:
		return nil, errors.New("consent: message must hold exactly one variant")
	}
}

func (m *ConsentMessage) UnmarshalJSON(data []byte) error {
	tag, body, err := decodeVariant(data)
	if err != nil {
		return fmt.Errorf("consent_message: %w", err)
	}
	*m = ConsentMessage{}
	switch tag {
	case "GenericDisplayMessage":
		var s string
		if err := json.Unmarshal(body, &s); err != nil {
			return fmt.Errorf("consent_message: %s: %w", tag, err)
		}
		m.Generic = &s
	case "FieldsDisplayMessage":
		m.Fields = new(FieldsDisplayMessage)
		if err := json.Unmarshal(body, m.Fields); err != nil {
			return fmt.Errorf("consent_message: %s: %w", tag, err)
		}
	case "LineDisplayMessage":
		m.Lines = new(LineDisplayMessage)
		if err := json.Unmarshal(body, m.Lines); err != nil {
			return fmt.Errorf("consent_message: %s: %w", tag, err)
		}
	default:
		return fmt.Errorf("consent_message: unknown variant %q", tag)
	}
	return nil
}

// ConsentInfo is the envelope returned for a successful request.
type ConsentInfo struct {
	Metadata       Metadata       `json:"metadata"`
	ConsentMessage ConsentMessage `json:"consent_message"`
}

// SupportedStandard names a standard implemented by the service.
type SupportedStandard struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// decodeVariant splits a single-key JSON object into its tag and body.
func decodeVariant(data []byte) (string, json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", nil, err
	}
	if len(obj) != 1 {
		return "", nil, fmt.Errorf("variant must have exactly one key, got %d", len(obj))
	}
	for k, v := range obj {
		return k, v, nil
	}
	panic("unreachable")
}
