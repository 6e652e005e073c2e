package utils

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	if a == b {
		t.Fatalf("expected distinct ids, got %q twice", a)
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Fatalf("expected uuid, got %q: %v", a, err)
	}
}

func TestNewSessionID(t *testing.T) {
	if got := NewSessionID(); len(got) != 32 {
		t.Fatalf("expected 32 chars, got %d (%q)", len(got), got)
	}
}

func TestShortID(t *testing.T) {
	cases := map[string]string{
		"0f8fad5b-d9cb-469f-a165-70867728950e": "0f8fad5b",
		"0123456789abcdef":                     "01234567",
		"abc":                                  "abc",
	}
	for in, want := range cases {
		if got := ShortID(in); got != want {
			t.Errorf("ShortID(%q) = %q, want %q", in, got, want)
		}
	}
}
