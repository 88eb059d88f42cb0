// Package registry looks up aircraft of interest by transponder address.
// Entries come from a CSV of icao24,manufacturer,icaoDescription,owner rows,
// either held in memory or imported into a sqlite store.
package registry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jsdx761/nexus/internal/monitoring"
)

// Entry is the registry record of one aircraft.
type Entry struct {
	Transponder     string `json:"transponder"`
	Manufacturer    string `json:"manufacturer"`
	ICAODescription string `json:"icaoDescription"`
	Owner           string `json:"owner"`
}

// Lookup resolves transponder addresses. Addresses are matched case
// insensitively.
type Lookup interface {
	Lookup(transponder string) (Entry, bool)
	Len() int
}

// Table is an in-memory registry.
type Table map[string]Entry

// Lookup implements Lookup.
func (t Table) Lookup(transponder string) (Entry, bool) {
	e, ok := t[normalize(transponder)]
	return e, ok
}

// Len implements Lookup.
func (t Table) Len() int { return len(t) }

func normalize(transponder string) string {
	return strings.ToLower(strings.TrimSpace(transponder))
}

// ReadCSV streams the entries of a registry CSV to fn. Rows with fewer than
// four fields and a leading icao24 header row are skipped.
func ReadCSV(r io.Reader, fn func(Entry) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("registry csv line %d: %w", line, err)
		}
		if len(rec) < 4 {
			monitoring.Logf("registry: skipping short row %d", line)
			continue
		}
		if line == 1 && strings.EqualFold(rec[0], "icao24") {
			continue
		}
		e := Entry{
			Transponder:     normalize(rec[0]),
			Manufacturer:    strings.TrimSpace(rec[1]),
			ICAODescription: strings.TrimSpace(rec[2]),
			Owner:           strings.TrimSpace(rec[3]),
		}
		if e.Transponder == "" {
			continue
		}
		if err := fn(e); err != nil {
			return err
		}
	}
}

// LoadCSV reads a registry CSV into a Table.
func LoadCSV(r io.Reader) (Table, error) {
	t := make(Table)
	err := ReadCSV(r, func(e Entry) error {
		t[e.Transponder] = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Open loads the registry at path: a .csv file is read into memory, any
// other path is opened as a sqlite store and migrated. The returned close
// function releases the store.
func Open(path string) (Lookup, func() error, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening registry: %w", err)
		}
		defer f.Close()
		t, err := LoadCSV(f)
		if err != nil {
			return nil, nil, err
		}
		monitoring.Logf("registry: loaded %d aircraft from %s", t.Len(), path)
		return t, func() error { return nil }, nil
	}

	s, err := OpenStore(path)
	if err != nil {
		return nil, nil, err
	}
	if err := s.MigrateUp(); err != nil {
		s.Close()
		return nil, nil, err
	}
	monitoring.Logf("registry: %d aircraft in %s", s.Len(), path)
	return s, s.Close, nil
}
