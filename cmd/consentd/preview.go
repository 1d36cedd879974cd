package main

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/ggoodman/consent-message-go/consent"
	"github.com/ggoodman/consent-message-go/consentservice"
	"github.com/ggoodman/consent-message-go/internal/candid"
	"github.com/spf13/cobra"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	pageLabelStyle = lipgloss.NewStyle().Faint(true)

	fieldLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#2563eb", Dark: "#9ecbff"})

	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

const genericBoxWidth = 64

func newPreviewCmd() *cobra.Command {
	var (
		rf     requestFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "preview [name...]",
		Short: "Render a consent message in the terminal",
		Long: `Builds a consent message request and renders the reply. Positional
arguments are joined into the Candid text argument; --arg passes a raw
base64 Candid argument instead.

  consentd preview Alice
  consentd preview Alice --fields
  consentd preview "Alice Cooper" --line 20x3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := rf.request(args)
			if err != nil {
				return err
			}
			info, err := consentservice.New().ConsentMessage(cmd.Context(), req)

			out := cmd.OutOrStdout()
			if asJSON {
				res, jerr := toResult(info, err)
				if jerr != nil {
					return jerr
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			if err != nil {
				var cerr *consent.Error
				if errors.As(err, &cerr) {
					fmt.Fprintln(out, errorStyle.Render(cerr.Kind.String()+": ")+cerr.Description)
				}
				return err
			}
			_, err = fmt.Fprintln(out, renderMessage(info.ConsentMessage, req.UserPreferences.DeviceSpec))
			return err
		},
	}

	rf.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the wire result instead of rendering it")
	return cmd
}

// requestFlags describe a consent message request on the command line.
type requestFlags struct {
	method string
	argB64 string
	fields bool
	line   string
}

func (rf *requestFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&rf.method, "method", consentservice.GreetMethod, "Method the consent message describes")
	f.StringVar(&rf.argB64, "arg", "", "Base64 encoded Candid argument")
	f.BoolVar(&rf.fields, "fields", false, "Request a fields display message")
	f.StringVar(&rf.line, "line", "", "Request a line display message, as CHARSxLINES (e.g. 20x3)")
	cmd.MarkFlagsMutuallyExclusive("fields", "line")
}

func (rf *requestFlags) request(args []string) (*consent.ConsentMessageRequest, error) {
	arg, err := previewArg(args, rf.argB64)
	if err != nil {
		return nil, err
	}
	spec := consent.NewGenericDisplay()
	switch {
	case rf.fields:
		spec = consent.NewFieldsDisplay()
	case rf.line != "":
		cpl, lpp, err := parseGeometry(rf.line)
		if err != nil {
			return nil, err
		}
		spec = consent.NewLineDisplay(cpl, lpp)
	}
	return &consent.ConsentMessageRequest{
		Method: rf.method,
		Arg:    arg,
		UserPreferences: consent.ConsentMessageSpec{
			Metadata:   consentservice.Locale,
			DeviceSpec: spec,
		},
	}, nil
}

func previewArg(args []string, argB64 string) ([]byte, error) {
	switch {
	case argB64 != "" && len(args) > 0:
		return nil, errors.New("pass either a name or --arg, not both")
	case argB64 != "":
		b, err := base64.StdEncoding.DecodeString(argB64)
		if err != nil {
			return nil, fmt.Errorf("--arg: %w", err)
		}
		return b, nil
	case len(args) > 0:
		return candid.EncodeText(strings.Join(args, " ")), nil
	default:
		return nil, errors.New("a name or --arg is required")
	}
}

// parseGeometry parses "CHARSxLINES".
func parseGeometry(s string) (uint16, uint16, error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("--line: want CHARSxLINES, got %q", s)
	}
	cpl, err := strconv.ParseUint(strings.TrimSpace(w), 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("--line: characters per line: %w", err)
	}
	lpp, err := strconv.ParseUint(strings.TrimSpace(h), 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("--line: lines per page: %w", err)
	}
	return uint16(cpl), uint16(lpp), nil
}

func toResult(info *consent.ConsentInfo, err error) (consent.Result, error) {
	if err == nil {
		return consent.Result{Ok: info}, nil
	}
	var cerr *consent.Error
	if errors.As(err, &cerr) {
		return consent.Result{Err: cerr}, nil
	}
	return consent.Result{}, err
}

func renderMessage(msg consent.ConsentMessage, spec *consent.DeviceSpec) string {
	switch {
	case msg.Generic != nil:
		return boxStyle.Width(genericBoxWidth).Render(*msg.Generic)
	case msg.Fields != nil:
		return renderFields(msg.Fields)
	case msg.Lines != nil:
		return renderPages(msg.Lines.Pages, int(spec.CharactersPerLine), int(spec.LinesPerPage))
	default:
		return ""
	}
}

func renderFields(m *consent.FieldsDisplayMessage) string {
	width := 0
	for _, f := range m.Fields {
		width = max(width, lipgloss.Width(f.Label))
	}
	rows := []string{titleStyle.Render(m.Intent), ""}
	for _, f := range m.Fields {
		label := fieldLabelStyle.Width(width).Render(f.Label)
		rows = append(rows, label+"  "+f.Value)
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// renderPages draws each page as a box of the display's geometry.
func renderPages(pages []consent.LineDisplayPage, width, height int) string {
	out := make([]string, 0, len(pages))
	for i, p := range pages {
		lines := append([]string(nil), p.Lines...)
		for len(lines) < height {
			lines = append(lines, "")
		}
		label := pageLabelStyle.Render(fmt.Sprintf("Page %d/%d", i+1, len(pages)))
		box := boxStyle.Width(width + 2).Render(strings.Join(lines, "\n"))
		out = append(out, lipgloss.JoinVertical(lipgloss.Left, label, box))
	}
	return lipgloss.JoinVertical(lipgloss.Left, out...)
}
