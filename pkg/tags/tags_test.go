package tags

import (
	"reflect"
	"testing"
)

func TestExtractBasic(t *testing.T) {
	got := Extract("deploy went fine #release #Ops see #release notes")
	want := []string{"release", "ops"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected tags: got %v want %v", got, want)
	}
}

func TestExtractIgnoresBareHash(t *testing.T) {
	if got := Extract("just a # and #x"); !reflect.DeepEqual(got, []string{"x"}) {
		t.Fatalf("unexpected tags: %v", got)
	}
}

func TestExtractMidWordHashNotATag(t *testing.T) {
	// '#' must start the whitespace-delimited token
	if got := Extract("c#sharp is not a tag"); got != nil {
		t.Fatalf("expected no tags, got %v", got)
	}
}

func TestExtractEmpty(t *testing.T) {
	if got := Extract(""); got != nil {
		t.Fatalf("expected nil for empty text, got %v", got)
	}
	if got := Extract("no tags here"); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
