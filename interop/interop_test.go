package interop_test

import (
	"strings"
	"testing"

	"github.com/totlang/tot-go/interop"
)

func TestJSON(t *testing.T) {
	in := "name \"svc\"\nport 8080.0\ntags [\n    \"a\"\n]\n"
	want := "{\n  \"name\": \"svc\",\n  \"port\": 8080,\n  \"tags\": [\n    \"a\"\n  ]\n}\n"
	got, err := interop.ToJSON([]byte(in))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != want {
		t.Fatalf("ToJSON = %q, want %q", got, want)
	}

	back, err := interop.FromJSON(got)
	if err != nil {
		t.Fatal(err)
	}
	if string(back) != in {
		t.Fatalf("FromJSON(ToJSON(doc)) = %q, want %q", back, in)
	}
}

func TestFromJSON(t *testing.T) {
	got, err := interop.FromJSON([]byte(`{"a": 1, "b": [true, null]}`))
	if err != nil {
		t.Fatal(err)
	}
	want := "a 1.0\nb [\n    true\n    null\n]\n"
	if string(got) != want {
		t.Fatalf("FromJSON = %q, want %q", got, want)
	}
}

func TestYAML(t *testing.T) {
	got, err := interop.ToYAML([]byte("a 1.0\nb \"x\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if want := "a: 1\nb: x\n"; string(got) != want {
		t.Fatalf("ToYAML = %q, want %q", got, want)
	}

	back, err := interop.FromYAML([]byte("a: 1\nb:\n  - true\n  - x\n"))
	if err != nil {
		t.Fatal(err)
	}
	if want := "a 1.0\nb [\n    true\n    \"x\"\n]\n"; string(back) != want {
		t.Fatalf("FromYAML = %q, want %q", back, want)
	}
}

func TestTOML(t *testing.T) {
	got, err := interop.ToTOML([]byte("title \"x\"\nowner {\n    name \"y\"\n}\n"))
	if err != nil {
		t.Fatal(err)
	}
	for _, fragment := range []string{"title = \"x\"", "[owner]", "name = \"y\""} {
		if !strings.Contains(string(got), fragment) {
			t.Errorf("ToTOML = %q, want a mention of %q", got, fragment)
		}
	}

	back, err := interop.FromTOML([]byte("title = \"x\"\nport = 8080\n"))
	if err != nil {
		t.Fatal(err)
	}
	if want := "port 8080.0\ntitle \"x\"\n"; string(back) != want {
		t.Fatalf("FromTOML = %q, want %q", back, want)
	}
}

func TestTOMLErrors(t *testing.T) {
	if _, err := interop.ToTOML([]byte("[1.0]")); err == nil || !strings.Contains(err.Error(), "top level") {
		t.Errorf("ToTOML of a list = %v, want a top-level error", err)
	}
	if _, err := interop.ToTOML([]byte("a null")); err == nil || !strings.Contains(err.Error(), "null") {
		t.Errorf("ToTOML of a null = %v, want a null error", err)
	}
}
