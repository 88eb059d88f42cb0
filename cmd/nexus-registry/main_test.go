package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestImportAndLookup(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "aircraft.csv")
	rows := "icao24,manufacturername,icaoaircrafttype,owner\n" +
		"A1B2C3,Cessna,L1P,State Patrol\n" +
		"d4e5f6,Bell,H2T,County Sheriff\n"
	if err := os.WriteFile(csvPath, []byte(rows), 0o644); err != nil {
		t.Fatal(err)
	}
	db := filepath.Join(dir, "aircraft.db")

	var out bytes.Buffer
	if err := run("import", []string{"-db", db, csvPath}, &out); err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out.String(), "imported 2 aircraft, 2 in") {
		t.Errorf("import output = %q", out.String())
	}

	out.Reset()
	if err := run("lookup", []string{"-db", db, "a1b2c3"}, &out); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got, want := out.String(), "a1b2c3\tCessna\tL1P\tState Patrol\n"; got != want {
		t.Errorf("lookup output = %q, want %q", got, want)
	}

	if err := run("lookup", []string{"-db", db, "ffffff"}, &out); err == nil {
		t.Error("expected an error for an unknown transponder")
	}

	out.Reset()
	if err := run("version", []string{"-db", db}, &out); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out.String(), "schema version 2 (dirty=false)") {
		t.Errorf("version output = %q", out.String())
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name    string
		command string
		args    []string
	}{
		{"unknown command", "export", nil},
		{"import without file", "import", nil},
		{"import missing file", "import", []string{filepath.Join(t.TempDir(), "none.csv")}},
		{"lookup without transponder", "lookup", nil},
		{"bad flag", "lookup", []string{"-verbose"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := run(tt.command, tt.args, &out); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestVersionWithoutDB(t *testing.T) {
	var out bytes.Buffer
	if err := run("version", nil, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "nexus-registry dev") {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	if err := run("help", nil, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Usage: nexus-registry") {
		t.Errorf("help output = %q", out.String())
	}
}
