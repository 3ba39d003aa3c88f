package tot_test

import (
	"reflect"
	"testing"
	"time"

	tot "github.com/totlang/tot-go"
)

// Serializing a parsed document and parsing it again must give back the
// same value tree, in both pretty and compact form. Comments and layout
// are the only things a round trip may lose.
func TestRoundTrip(t *testing.T) {
	for _, doc := range []string{
		"",
		"null",
		"true",
		"-22.5",
		`"hello \"world\""`,
		"[]",
		"{}",
		"[1.0, 2.0, [3.0], {a 4.0}]",
		"boolean true\ninteger 22.0\nstring \"hello world\"\n",
		"outer {\n    inner \"value\"\n}\n",
		"list [\n    1.0\n    2.0\n]\n",
		"// commented\na 1.0 /* block */ b [true, null]\n",
		"dup 1.0 dup 2.0",
		`"quoted key" {nested [[]]}`,
		`emoji "\u{1F602}" plain "😀"`,
	} {
		parsed, err := tot.Parse([]byte(doc))
		if err != nil {
			t.Fatalf("Parse(%q): %v", doc, err)
		}

		pretty, err := tot.Marshal(parsed)
		if err != nil {
			t.Fatalf("Marshal(%#v): %v", parsed, err)
		}
		reparsed, err := tot.Parse(pretty)
		if err != nil {
			t.Fatalf("Parse(%q): %v", pretty, err)
		}
		if !reflect.DeepEqual(parsed, reparsed) {
			t.Errorf("pretty round trip of %q changed %#v to %#v (via %q)", doc, parsed, reparsed, pretty)
		}

		again, err := tot.Marshal(reparsed)
		if err != nil {
			t.Fatal(err)
		}
		if string(again) != string(pretty) {
			t.Errorf("encoding %q is not idempotent: %q then %q", doc, pretty, again)
		}

		compact, err := tot.MarshalCompact(parsed)
		if err != nil {
			t.Fatalf("MarshalCompact(%#v): %v", parsed, err)
		}
		reparsed, err = tot.Parse(compact)
		if err != nil {
			t.Fatalf("Parse(%q): %v", compact, err)
		}
		if !reflect.DeepEqual(parsed, reparsed) {
			t.Errorf("compact round trip of %q changed %#v to %#v (via %q)", doc, parsed, reparsed, compact)
		}
	}
}

// Pretty output is canonical: marshalling what it parses to reproduces it
// byte for byte.
func TestPrettyFixpoint(t *testing.T) {
	for _, doc := range []string{
		"",
		"a 1.0\n",
		"a [\n    1.0\n]\nb {\n    c \"d\"\n}\n",
		"[\n    1.0\n]\n",
		"\"x\"\n",
	} {
		parsed, err := tot.Parse([]byte(doc))
		if err != nil {
			t.Fatalf("Parse(%q): %v", doc, err)
		}
		out, err := tot.Marshal(parsed)
		if err != nil {
			t.Fatal(err)
		}
		if string(out) != doc {
			t.Errorf("Marshal(Parse(%q)) = %q", doc, out)
		}
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	type inner struct {
		Value string `tot:"value"`
	}
	type config struct {
		Name     string             `tot:"name"`
		Retries  int                `tot:"retries"`
		Ratio    float64            `tot:"ratio"`
		Enabled  bool               `tot:"enabled"`
		Tags     []string           `tot:"tags"`
		Limits   map[string]float64 `tot:"limits"`
		Inner    inner              `tot:"inner"`
		Optional *inner             `tot:"optional"`
		Missing  *inner             `tot:"missing"`
		Shape    shape              `tot:"shape"`
		When     time.Time          `tot:"when"`
	}

	in := config{
		Name:     "service",
		Retries:  3,
		Ratio:    0.5,
		Enabled:  true,
		Tags:     []string{"a", "b"},
		Limits:   map[string]float64{"cpu": 2, "mem": 512},
		Inner:    inner{Value: "x"},
		Optional: &inner{Value: "y"},
		Shape:    shape{kind: "circle", radius: 2},
		When:     time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}

	for _, marshal := range []func(any) ([]byte, error){tot.Marshal, tot.MarshalCompact} {
		data, err := marshal(in)
		if err != nil {
			t.Fatal(err)
		}
		var out config
		if err := tot.Unmarshal(data, &out); err != nil {
			t.Fatalf("Unmarshal(%q): %v", data, err)
		}
		if !reflect.DeepEqual(in, out) {
			t.Errorf("round trip through %q changed %+v to %+v", data, in, out)
		}
	}
}
