// Package layout lays text out for small fixed-size displays.
//
// Text is first split into tokens no wider than a line, tokens are packed
// greedily into lines, and lines are grouped into pages. All widths are
// measured in runes.
//
//	pages, err := layout.Paginate("Produce the following greeting text", 20, 3)
//	if err != nil { ... }
//	for _, p := range pages {
//	    fmt.Println(strings.Join(p.Lines, "\n"))
//	}
package layout

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrInvalidConfiguration is returned when a line width or page height is not
// a positive integer.
var ErrInvalidConfiguration = errors.New("layout: invalid configuration")

var (
	// ErrInvalidWidth indicates a non-positive characters-per-line value.
	ErrInvalidWidth = fmt.Errorf("%w: width must be positive", ErrInvalidConfiguration)
	// ErrInvalidHeight indicates a non-positive lines-per-page value.
	ErrInvalidHeight = fmt.Errorf("%w: height must be positive", ErrInvalidConfiguration)
)

// Page is an ordered, non-empty group of lines.
type Page struct {
	Lines []string `json:"lines"`
}

// Paginate tokenizes text, packs the tokens into lines of the given width and
// groups the lines into pages of the given height. Both parameters are
// validated before any work is done.
func Paginate(text string, width, height int) ([]Page, error) {
	if width <= 0 {
		return nil, ErrInvalidWidth
	}
	if height <= 0 {
		return nil, ErrInvalidHeight
	}

	tokens, err := Tokenize(text, width)
	if err != nil {
		return nil, err
	}
	lines, err := PackLines(tokens, width)
	if err != nil {
		return nil, err
	}
	return GroupPages(lines, height)
}

// Tokenize splits text on runs of whitespace and breaks any word longer than
// width runes into consecutive chunks of exactly width runes (the last chunk
// may be shorter). Empty text yields no tokens.
func Tokenize(text string, width int) ([]string, error) {
	if width <= 0 {
		return nil, ErrInvalidWidth
	}

	words := strings.Fields(text)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) <= width {
			tokens = append(tokens, w)
			continue
		}
		tokens = appendChunks(tokens, w, width)
	}
	return tokens, nil
}

// appendChunks appends word to dst in pieces of width runes.
func appendChunks(dst []string, word string, width int) []string {
	start, n := 0, 0
	for i := range word {
		if n == width {
			dst = append(dst, word[start:i])
			start, n = i, 0
		}
		n++
	}
	return append(dst, word[start:])
}

// PackLines greedily assembles tokens into lines, preserving order.
//
// A token joins the current line only when the joined length stays strictly
// below width. A line that would be exactly width runes long is closed
// instead, so the only lines reaching width are single tokens of that size.
// The last line is always emitted: no tokens yields a single empty line.
func PackLines(tokens []string, width int) ([]string, error) {
	if width <= 0 {
		return nil, ErrInvalidWidth
	}

	var (
		lines []string
		cur   strings.Builder
		n     int // runes in cur
	)
	for _, tok := range tokens {
		tn := utf8.RuneCountInString(tok)
		if n == 0 {
			cur.WriteString(tok)
			n = tn
			continue
		}
		if n+1+tn < width {
			cur.WriteByte(' ')
			cur.WriteString(tok)
			n += 1 + tn
			continue
		}
		lines = append(lines, cur.String())
		cur.Reset()
		cur.WriteString(tok)
		n = tn
	}
	return append(lines, cur.String()), nil
}

// GroupPages partitions lines into pages of height lines each; the final page
// holds the remainder. No lines yields no pages.
func GroupPages(lines []string, height int) ([]Page, error) {
	if height <= 0 {
		return nil, ErrInvalidHeight
	}

	pages := make([]Page, 0, (len(lines)+height-1)/height)
	for start := 0; start < len(lines); start += height {
		end := min(start+height, len(lines))
		pages = append(pages, Page{Lines: append([]string(nil), lines[start:end]...)})
	}
	return pages, nil
}
