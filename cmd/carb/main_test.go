package main

import (
	"testing"

	"github.com/alexandrosbouzalas/carb/internal/enumerate"
)

func TestParseArgsFull(t *testing.T) {
	start, mode, ref, err := parseArgs([]string{"/srv/data"})
	if err != nil {
		t.Fatal(err)
	}
	if start != "/srv/data" || mode != enumerate.Full || ref != "" {
		t.Errorf("got (%q, %v, %q)", start, mode, ref)
	}
}

func TestParseArgsExplicitFull(t *testing.T) {
	start, mode, ref, err := parseArgs([]string{"/srv/data", "--full"})
	if err != nil {
		t.Fatal(err)
	}
	if start != "/srv/data" || mode != enumerate.Full || ref != "" {
		t.Errorf("got (%q, %v, %q)", start, mode, ref)
	}
}

func TestParseArgsIncremental(t *testing.T) {
	start, mode, ref, err := parseArgs([]string{"/srv/data", "/srv/ref.stamp"})
	if err != nil {
		t.Fatal(err)
	}
	if start != "/srv/data" || mode != enumerate.Incremental || ref != "/srv/ref.stamp" {
		t.Errorf("got (%q, %v, %q)", start, mode, ref)
	}
}

func TestParseArgsRejectsWrongArity(t *testing.T) {
	if _, _, _, err := parseArgs(nil); err == nil {
		t.Error("expected an error for zero arguments")
	}
	if _, _, _, err := parseArgs([]string{"a", "b", "c"}); err == nil {
		t.Error("expected an error for three arguments")
	}
}
