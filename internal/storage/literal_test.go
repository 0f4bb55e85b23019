package storage

import (
	"reflect"
	"testing"
)

func TestUnquote(t *testing.T) {
	tests := []struct {
		name   string
		quoted string
		want   string
	}{
		{"double", `"plain"`, "plain"},
		{"single", `'plain'`, "plain"},
		{"backtick", "`plain`", "plain"},
		{"escaped quote", `"say \"hi\""`, `say "hi"`},
		{"other quote inside", `"we'll"`, "we'll"},
		{"newline and tab", `"a\nb\tc"`, "a\nb\tc"},
		{"backslash", `"C:\\path"`, `C:\path`},
		{"unknown escape keeps char", `"you\’ve"`, "you’ve"},
		{"unicode escape", `"caf\u00e9"`, "café"},
		{"hex escape", `"\x41"`, "A"},
		{"short unicode escape", `"\u12"`, "u12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := unquote(tt.quoted); got != tt.want {
				t.Errorf("unquote(%s) = %q, want %q", tt.quoted, got, tt.want)
			}
		})
	}
}

func TestQuote_RoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		`He said "hi"`,
		`back\slash`,
		"line one\nline two",
		"cr\r\nlf",
		"tab\there",
		"it’s {braced} [bracketed]",
		`trailing backslash\`,
	}

	for _, in := range inputs {
		quoted := quote(in)
		if got := unquote(quoted); got != in {
			t.Errorf("unquote(quote(%q)) = %q", in, got)
		}
	}

	if got := quote("a\"b\\c\nd\te\r"); got != `"a\"b\\c\nd\te\r"` {
		t.Errorf("quote escaped wrongly: %s", got)
	}
}

func TestSplitObjects(t *testing.T) {
	body := `
  { id: 1, title: "has } brace" },
  // { id: 99 } commented out
  { id: 2, tags: ["a", "b"], meta: { nested: true } },
  { id: 3, title: 'it\'s' },
`
	got, err := splitObjects(body)
	if err != nil {
		t.Fatalf("splitObjects failed: %v", err)
	}
	want := []string{
		`{ id: 1, title: "has } brace" }`,
		`{ id: 2, tags: ["a", "b"], meta: { nested: true } }`,
		`{ id: 3, title: 'it\'s' }`,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitObjects() =\n%q\nwant\n%q", got, want)
	}
}

func TestSplitObjects_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unterminated string", `{ id: 1, title: "oops }`},
		{"unbalanced braces", `{ id: 1, meta: { a: 1 }`},
		{"mismatched brackets", `{ id: 1, tags: ["a" } ]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := splitObjects(tt.body); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseObject(t *testing.T) {
	obj := `{
    // leading comment
    id: 12,
    "title": "Quoted key",
    'date':'March 13, 2025',
    time :   "4:00 PM - 5:30 PM HST" ,
    location: "Kona" as const,
    status2: 'x' satisfies string,
    tags: ["ignored", { deep: 1 }],
    status: 'past', // trailing comment
    count: 3 // number with comment
  }`

	got, err := parseObject(obj)
	if err != nil {
		t.Fatalf("parseObject failed: %v", err)
	}
	want := map[string]string{
		"id":       "12",
		"title":    "Quoted key",
		"date":     "March 13, 2025",
		"time":     "4:00 PM - 5:30 PM HST",
		"location": "Kona",
		"status2":  "x",
		"status":   "past",
		"count":    "3",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseObject() = %v, want %v", got, want)
	}
}

func TestParseObject_Errors(t *testing.T) {
	tests := []string{
		`id: 1`,
		`{ id 1 }`,
		`{ id: 1,`,
		`{ : 1 }`,
	}
	for _, obj := range tests {
		if _, err := parseObject(obj); err == nil {
			t.Errorf("parseObject(%q) expected error", obj)
		}
	}
}
