package jsonutil

import (
	"testing"

	"distillery/internal/tester"
)

func TestUnmarshalFlexDirect(t *testing.T) {
	var out struct {
		Answer string `json:"answer"`
	}
	tester.NoErr(t, Unmarshal([]byte(`{"answer":"plain"}`), &out))
	tester.Eq(t, out.Answer, "plain")
}

func TestUnmarshalFlexStripsFences(t *testing.T) {
	raw := "```json\n{\"answer\":\"fenced\"}\n```"
	var out struct {
		Answer string `json:"answer"`
	}
	tester.NoErr(t, Unmarshal([]byte(raw), &out))
	tester.Eq(t, out.Answer, "fenced")
}

func TestStripFencesLeavesPlainJSONAlone(t *testing.T) {
	raw := []byte(`{"tags":["a","b"]}`)
	tester.Eq(t, string(StripFences(raw)), string(raw))
}

func TestNormalizeJSONUnicodeUnescapesAngleBrackets(t *testing.T) {
	norm, err := NormalizeJSONUnicode([]byte("{\"a\":\"x \\u003e y\"}"))
	tester.NoErr(t, err)
	tester.Contains(t, string(norm), "x > y")
}

func TestMarshalNoEscape(t *testing.T) {
	raw, err := MarshalNoEscape(map[string]string{"q": "x > y"})
	tester.NoErr(t, err)
	tester.Contains(t, string(raw), "x > y")
}
