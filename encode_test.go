package tot_test

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	tot "github.com/totlang/tot-go"
)

func TestMarshal(t *testing.T) {
	type example struct {
		Boolean bool   `tot:"boolean"`
		Integer int    `tot:"integer"`
		String  string `tot:"string"`
	}
	type inner struct {
		Inner string `tot:"inner"`
	}

	for _, test := range []struct {
		name string
		in   any
		out  string
	}{
		{
			name: "flat struct",
			in:   example{Boolean: true, Integer: 22, String: "hello world"},
			out:  "boolean true\ninteger 22.0\nstring \"hello world\"\n",
		},
		{
			name: "nested struct",
			in: struct {
				Outer inner `tot:"outer"`
			}{inner{Inner: "value"}},
			out: "outer {\n    inner \"value\"\n}\n",
		},
		{
			name: "list field",
			in: struct {
				List []float64 `tot:"list"`
			}{[]float64{1, 2}},
			out: "list [\n    1.0\n    2.0\n]\n",
		},
		{
			name: "empty list field",
			in: struct {
				List []float64 `tot:"list"`
			}{},
			out: "list []\n",
		},
		{
			name: "nil pointer",
			in: struct {
				P *int `tot:"p"`
			}{},
			out: "p null\n",
		},
		{
			name: "sorted map",
			in:   map[string]float64{"b": 2, "a": 1},
			out:  "a 1.0\nb 2.0\n",
		},
		{
			name: "integer keyed map",
			in:   map[int]string{2: "two", 1: "one"},
			out:  "1.0 \"one\"\n2.0 \"two\"\n",
		},
		{
			name: "empty map",
			in:   map[string]float64{},
			out:  "",
		},
		{
			name: "root scalar",
			in:   22.0,
			out:  "22.0\n",
		},
		{
			name: "root list",
			in:   []any{1.0, "a", nil},
			out:  "[\n    1.0\n    \"a\"\n    null\n]\n",
		},
		{
			name: "omitempty",
			in: struct {
				A string  `tot:"a,omitempty"`
				B int     `tot:"b,omitempty"`
				C float64 `tot:"c"`
			}{},
			out: "c 0.0\n",
		},
		{
			name: "untagged fields keep their names",
			in: struct {
				HelloWorld string
			}{"hi"},
			out: "HelloWorld \"hi\"\n",
		},
		{
			name: "string escaping",
			in:   map[string]string{"k": "a\"b\\c\nd\x01"},
			out:  `k "a\"b\\c\nd\u{1}"` + "\n",
		},
		{
			name: "text marshaler",
			in: struct {
				When time.Time `tot:"when"`
			}{time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)},
			out: "when \"2026-08-30T12:00:00Z\"\n",
		},
		{
			name: "unit variant",
			in:   shape{kind: "point"},
			out:  "\"point\"\n",
		},
		{
			name: "root variant with payload",
			in:   shape{kind: "circle", radius: 2},
			out:  "circle 2.0\n",
		},
		{
			name: "root variant with dict payload",
			in:   shape{kind: "box", w: 1, h: 2},
			out:  "box {\n    w 1.0\n    h 2.0\n}\n",
		},
		{
			name: "nested variant",
			in: struct {
				Shape shape `tot:"shape"`
			}{shape{kind: "rect", w: 3, h: 4}},
			out: "shape {\n    rect [\n        3.0\n        4.0\n    ]\n}\n",
		},
		{
			name: "value tree",
			in: dict(map[string]tot.Value{
				"b": num(2),
				"a": list(boolean(true), unit()),
			}),
			out: "a [\n    true\n    null\n]\nb 2.0\n",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			got, err := tot.Marshal(test.in)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != test.out {
				t.Fatalf("Marshal(%#v) = %q, want %q", test.in, got, test.out)
			}
		})
	}
}

func TestMarshalCompact(t *testing.T) {
	type example struct {
		Boolean bool   `tot:"boolean"`
		Integer int    `tot:"integer"`
		String  string `tot:"string"`
	}

	for _, test := range []struct {
		name string
		in   any
		out  string
	}{
		{
			name: "flat struct",
			in:   example{Boolean: true, Integer: 22, String: "hello world"},
			out:  `boolean true, integer 22.0, string "hello world"`,
		},
		{
			name: "nested containers",
			in: struct {
				Dict map[string]float64 `tot:"dict"`
				List []float64          `tot:"list"`
			}{map[string]float64{"a": 1, "b": 2}, []float64{3, 4}},
			out: "dict {a 1.0, b 2.0}, list [3.0, 4.0]",
		},
		{
			name: "root scalar",
			in:   "hi",
			out:  `"hi"`,
		},
		{
			name: "empty document",
			in:   map[string]float64{},
			out:  "",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			got, err := tot.MarshalCompact(test.in)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != test.out {
				t.Fatalf("MarshalCompact(%#v) = %q, want %q", test.in, got, test.out)
			}
		})
	}
}

func TestNumberRendering(t *testing.T) {
	for in, want := range map[float64]string{
		0:      "0.0\n",
		22:     "22.0\n",
		-0.5:   "-0.5\n",
		2.5:    "2.5\n",
		100000: "100000.0\n",
		1e6:    "1e+06\n",
		1e-05:  "1e-05\n",
		1e21:   "1e+21\n",
	} {
		got, err := tot.Marshal(in)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != want {
			t.Errorf("Marshal(%v) = %q, want %q", in, got, want)
		}
	}

	for _, in := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := tot.Marshal(in)
		var terr *tot.Error
		if !errors.As(err, &terr) || terr.Kind != tot.FrameworkError {
			t.Errorf("Marshal(%v) = %v, want a framework error", in, err)
		}
	}
}

func TestKeyQuoting(t *testing.T) {
	for key, want := range map[string]string{
		"plain":     "plain 1.0\n",
		"ok-key!":   "ok-key! 1.0\n",
		"two words": "\"two words\" 1.0\n",
		"":          "\"\" 1.0\n",
		"a,b":       "\"a,b\" 1.0\n",
		"{x":        "\"{x\" 1.0\n",
		"//comment": "\"//comment\" 1.0\n",
		"tab\there": "\"tab\\there\" 1.0\n",
	} {
		got, err := tot.Marshal(map[string]float64{key: 1})
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != want {
			t.Errorf("key %q rendered as %q, want %q", key, got, want)
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestEncoderErrors(t *testing.T) {
	e := tot.NewEncoder(failingWriter{})
	if err := e.BeginList(); err == nil {
		t.Fatal("BeginList on a failing writer unexpectedly succeeded")
	}
	// The error is sticky.
	err := e.Finish()
	var terr *tot.Error
	if !errors.As(err, &terr) || terr.Kind != tot.IoError {
		t.Fatalf("Finish() = %v, want an io error", err)
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("Finish() = %v, want the writer's message", err)
	}

	e = tot.NewEncoder(&strings.Builder{})
	if err := e.BeginList(); err != nil {
		t.Fatal(err)
	}
	if err := e.Finish(); err == nil || !strings.Contains(err.Error(), "unclosed container") {
		t.Fatalf("Finish() with an open list = %v", err)
	}
}

func TestEncoderPush(t *testing.T) {
	var out strings.Builder
	e := tot.NewEncoder(&out)
	if err := e.BeginDict(); err != nil {
		t.Fatal(err)
	}
	if err := e.Key("name"); err != nil {
		t.Fatal(err)
	}
	if err := e.String("service"); err != nil {
		t.Fatal(err)
	}
	if err := e.Key("retries"); err != nil {
		t.Fatal(err)
	}
	if err := e.Number(3); err != nil {
		t.Fatal(err)
	}
	if err := e.Key("endpoints"); err != nil {
		t.Fatal(err)
	}
	if err := e.BeginList(); err != nil {
		t.Fatal(err)
	}
	if err := e.String("a"); err != nil {
		t.Fatal(err)
	}
	if err := e.EndList(); err != nil {
		t.Fatal(err)
	}
	if err := e.EndDict(); err != nil {
		t.Fatal(err)
	}
	if err := e.Finish(); err != nil {
		t.Fatal(err)
	}
	want := "name \"service\"\nretries 3.0\nendpoints [\n    \"a\"\n]\n"
	if out.String() != want {
		t.Fatalf("got %q, want %q", out.String(), want)
	}
}
