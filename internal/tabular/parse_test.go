package tabular

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want [][]string
	}{
		{
			name: "empty input",
			in:   "",
			want: nil,
		},
		{
			name: "single row no terminator",
			in:   "a,b,c",
			want: [][]string{{"a", "b", "c"}},
		},
		{
			name: "single field no terminator",
			in:   "abc",
			want: [][]string{{"abc"}},
		},
		{
			name: "trailing newline produces no extra row",
			in:   "a,b\nc,d\n",
			want: [][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			name: "crlf counts as one terminator",
			in:   "a,b\r\nc,d\r\n",
			want: [][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			name: "bare cr terminates a row",
			in:   "a\rb",
			want: [][]string{{"a"}, {"b"}},
		},
		{
			name: "blank line is a single empty field",
			in:   "a\n\nb\n",
			want: [][]string{{"a"}, {""}, {"b"}},
		},
		{
			name: "trailing delimiter yields empty last field",
			in:   "a,",
			want: [][]string{{"a", ""}},
		},
		{
			name: "quoted delimiter and newline",
			in:   "\"x,y\",\"line1\nline2\"\nz,w",
			want: [][]string{{"x,y", "line1\nline2"}, {"z", "w"}},
		},
		{
			name: "doubled quote is literal",
			in:   `"say ""hi""",b`,
			want: [][]string{{`say "hi"`, "b"}},
		},
		{
			name: "quoted empty field at eof",
			in:   `""`,
			want: [][]string{{""}},
		},
		{
			name: "unterminated quote swallows rest",
			in:   "a,\"b,c\nd",
			want: [][]string{{"a", "b,c\nd"}},
		},
		{
			name: "multibyte content",
			in:   "Café,Açúcar\n",
			want: [][]string{{"Café", "Açúcar"}},
		},
		{
			name: "latin-1 bytes pass through unchanged",
			in:   "name\nCaf\xe9,A\xe7\xfacar\n",
			want: [][]string{{"name"}, {"Caf\xe9", "A\xe7\xfacar"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.in)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestParseDelim(t *testing.T) {
	got := ParseDelim("a;b;\"c;d\"\n", ';')
	want := [][]string{{"a", "b", "c;d"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseDelim mismatch (-want +got):\n%s", diff)
	}

	got = ParseDelim("x§Caf\xe9§\"a§b\"\n", '§')
	want = [][]string{{"x", "Caf\xe9", "a§b"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseDelim multibyte delimiter mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeParseRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
	}{
		{
			name: "plain",
			rows: [][]string{{"ID", "NAME"}, {"1", "Coffee"}},
		},
		{
			name: "embedded delimiters quotes and newlines",
			rows: [][]string{
				{"h1", "Coffee, Sugar"},
				{"h2", `the "best" one`},
				{"h3", "multi\nline"},
				{"h4", "cr\r\nlf"},
			},
		},
		{
			name: "empty fields",
			rows: [][]string{{"", "", "x"}, {""}, {"y", ""}},
		},
		{
			name: "leading and trailing spaces",
			rows: [][]string{{" 123.45 ", "  padded"}},
		},
		{
			name: "unicode",
			rows: [][]string{{"Pão de Açúcar", "São Paulo"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := Encode(tt.rows)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			got := Parse(text)
			if diff := cmp.Diff(tt.rows, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s\nencoded: %q", diff, text)
			}
		})
	}
}
