package consentservice

import (
	"errors"
	"fmt"

	"github.com/ggoodman/consent-message-go/consent"
	"github.com/ggoodman/consent-message-go/layout"
)

// Locale is the only language consent messages are produced in. No UTC
// offset is ever reported.
var Locale = consent.Metadata{Language: "en"}

// Compose renders d for the given display preference. A nil spec renders a
// generic display message. Compose is pure: the result depends only on its
// arguments.
func Compose(d Description, spec *consent.DeviceSpec) (*consent.ConsentInfo, error) {
	return ComposeIn(Locale, d, spec)
}

// ComposeIn is Compose with explicit locale metadata.
func ComposeIn(md consent.Metadata, d Description, spec *consent.DeviceSpec) (*consent.ConsentInfo, error) {
	msg, err := composeMessage(d, spec)
	if err != nil {
		return nil, err
	}
	return &consent.ConsentInfo{Metadata: md, ConsentMessage: msg}, nil
}

func composeMessage(d Description, spec *consent.DeviceSpec) (consent.ConsentMessage, error) {
	if spec == nil {
		return consent.NewGenericMessage(genericText(d)), nil
	}

	switch spec.Kind {
	case consent.GenericDisplay:
		return consent.NewGenericMessage(genericText(d)), nil
	case consent.FieldsDisplay:
		return consent.NewFieldsMessage(d.Intent, d.Fields...), nil
	case consent.LineDisplay:
		pages, err := layout.Paginate(lineText(d), int(spec.CharactersPerLine), int(spec.LinesPerPage))
		if err != nil {
			if errors.Is(err, layout.ErrInvalidConfiguration) {
				return consent.ConsentMessage{}, consent.InvalidConfiguration(fmt.Sprintf(
					"line display requires positive characters_per_line and lines_per_page, got %d and %d",
					spec.CharactersPerLine, spec.LinesPerPage))
			}
			return consent.ConsentMessage{}, err
		}
		out := make([]consent.LineDisplayPage, len(pages))
		for i, p := range pages {
			out[i] = consent.LineDisplayPage{Lines: p.Lines}
		}
		return consent.NewLineMessage(out), nil
	default:
		return consent.ConsentMessage{}, consent.UnsupportedOperation(fmt.Sprintf("unsupported device spec %s", spec.Kind))
	}
}

func genericText(d Description) string {
	return fmt.Sprintf("Produce the following %s:\n> %s", d.Effect, d.Text)
}

func lineText(d Description) string {
	return fmt.Sprintf("Produce the following %s:\n \"%s\"", d.Effect, d.Text)
}
