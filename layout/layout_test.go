package layout

import (
	"errors"
	"math/rand/v2"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPaginate_GreetingScenario(t *testing.T) {
	text := "Produce the following greeting text:\n \"Hello, Alice!\""

	pages, err := Paginate(text, 20, 3)
	if err != nil {
		t.Fatalf("paginate: %v", err)
	}

	want := []Page{
		{Lines: []string{"Produce the", "following greeting", `text: "Hello,`}},
		{Lines: []string{`Alice!"`}},
	}
	if !reflect.DeepEqual(pages, want) {
		t.Fatalf("pages mismatch:\n got %q\nwant %q", pages, want)
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  []string
	}{
		{name: "empty", text: "", width: 5, want: []string{}},
		{name: "whitespace only", text: " \t\n ", width: 5, want: []string{}},
		{name: "collapses runs", text: "a  b\t\tc\n\nd", width: 5, want: []string{"a", "b", "c", "d"}},
		{name: "exact width kept whole", text: "abcde", width: 5, want: []string{"abcde"}},
		{name: "long word chunked", text: "abcdefghijk", width: 4, want: []string{"abcd", "efgh", "ijk"}},
		{name: "multiple of width", text: "abcdef", width: 3, want: []string{"abc", "def"}},
		{name: "width one", text: "ab c", width: 1, want: []string{"a", "b", "c"}},
		{name: "runes not bytes", text: "ééééé", width: 2, want: []string{"éé", "éé", "é"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tokenize(tt.text, tt.width)
			if err != nil {
				t.Fatalf("tokenize: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("want %q, got %q", tt.want, got)
			}
		})
	}
}

func TestPackLines_StrictThreshold(t *testing.T) {
	// "abcd" + " " + "efgh" is exactly 9 runes: at width 9 it must not be joined.
	got, err := PackLines([]string{"abcd", "efgh"}, 9)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if want := []string{"abcd", "efgh"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("width 9: want %q, got %q", want, got)
	}

	// One more column and the join fits.
	got, err = PackLines([]string{"abcd", "efgh"}, 10)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if want := []string{"abcd efgh"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("width 10: want %q, got %q", want, got)
	}
}

func TestPackLines_FullWidthToken(t *testing.T) {
	got, err := PackLines([]string{"abcde", "f", "g"}, 5)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if want := []string{"abcde", "f g"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestPackLines_NoTokens(t *testing.T) {
	got, err := PackLines(nil, 5)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if want := []string{""}; !reflect.DeepEqual(got, want) {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestGroupPages(t *testing.T) {
	lines := []string{"1", "2", "3", "4", "5", "6", "7"}

	pages, err := GroupPages(lines, 3)
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	want := []Page{
		{Lines: []string{"1", "2", "3"}},
		{Lines: []string{"4", "5", "6"}},
		{Lines: []string{"7"}},
	}
	if !reflect.DeepEqual(pages, want) {
		t.Fatalf("want %v, got %v", want, pages)
	}

	pages, err = GroupPages(lines[:6], 3)
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	if len(pages) != 2 || len(pages[1].Lines) != 3 {
		t.Fatalf("exact multiple: got %v", pages)
	}

	pages, err = GroupPages(nil, 3)
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	if len(pages) != 0 {
		t.Fatalf("no lines: want no pages, got %v", pages)
	}
}

func TestGroupPages_DoesNotAliasInput(t *testing.T) {
	lines := []string{"a", "b", "c"}
	pages, err := GroupPages(lines, 2)
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	lines[0] = "mutated"
	if pages[0].Lines[0] != "a" {
		t.Fatalf("page shares backing array with input")
	}
}

func TestInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{"tokenize zero width", func() error { _, err := Tokenize("x", 0); return err }, ErrInvalidWidth},
		{"pack negative width", func() error { _, err := PackLines([]string{"x"}, -1); return err }, ErrInvalidWidth},
		{"group zero height", func() error { _, err := GroupPages([]string{"x"}, 0); return err }, ErrInvalidHeight},
		{"paginate zero width", func() error { _, err := Paginate("x", 0, 3); return err }, ErrInvalidWidth},
		{"paginate zero height", func() error { _, err := Paginate("x", 3, 0); return err }, ErrInvalidHeight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v, got %v", tt.wantErr, err)
			}
			if !errors.Is(err, ErrInvalidConfiguration) {
				t.Fatalf("want wrapped ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

// randomText builds whitespace-separated words of varying length, including
// multi-byte runes and runs of mixed whitespace.
func randomText(r *rand.Rand) string {
	alphabet := []rune("abcdefghijklmnopqrstuvwxyzÄöü€\"!,.:")
	spaces := []string{" ", "  ", "\n", "\t", " \n "}
	var b strings.Builder
	words := r.IntN(40)
	for i := 0; i < words; i++ {
		if i > 0 || r.IntN(2) == 0 {
			b.WriteString(spaces[r.IntN(len(spaces))])
		}
		n := 1 + r.IntN(30)
		for j := 0; j < n; j++ {
			b.WriteRune(alphabet[r.IntN(len(alphabet))])
		}
	}
	return b.String()
}

func TestPaginate_Properties(t *testing.T) {
	r := rand.New(rand.NewPCG(21, 10))

	for i := 0; i < 500; i++ {
		text := randomText(r)
		width := 1 + r.IntN(25)
		height := 1 + r.IntN(6)

		pages, err := Paginate(text, width, height)
		if err != nil {
			t.Fatalf("paginate(%q, %d, %d): %v", text, width, height, err)
		}

		var flat []string
		for pi, p := range pages {
			if len(p.Lines) == 0 || len(p.Lines) > height {
				t.Fatalf("page %d has %d lines, height %d", pi, len(p.Lines), height)
			}
			if pi < len(pages)-1 && len(p.Lines) != height {
				t.Fatalf("non-final page %d has %d lines, height %d", pi, len(p.Lines), height)
			}
			for _, line := range p.Lines {
				n := utf8.RuneCountInString(line)
				if n >= width && !(n == width && !strings.Contains(line, " ")) {
					t.Fatalf("line %q (%d runes) violates width %d", line, n, width)
				}
				flat = append(flat, line)
			}
		}

		// Lossless over non-whitespace content, in order.
		got := strings.Join(strings.Fields(strings.Join(flat, " ")), "")
		want := strings.Join(strings.Fields(text), "")
		if got != want {
			t.Fatalf("content mismatch for %q at width %d:\n got %q\nwant %q", text, width, got, want)
		}

		again, err := Paginate(text, width, height)
		if err != nil || !reflect.DeepEqual(again, pages) {
			t.Fatalf("non-deterministic output for %q", text)
		}
	}
}

func TestPaginate_TokenOrderPreserved(t *testing.T) {
	text := "one two three four five six seven eight nine ten"
	tokens, err := Tokenize(text, 6)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	pages, err := Paginate(text, 6, 2)
	if err != nil {
		t.Fatalf("paginate: %v", err)
	}
	var flat []string
	for _, p := range pages {
		for _, l := range p.Lines {
			flat = append(flat, strings.Fields(l)...)
		}
	}
	if !reflect.DeepEqual(flat, tokens) {
		t.Fatalf("token order changed:\n got %q\nwant %q", flat, tokens)
	}
}
