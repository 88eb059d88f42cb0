package registry

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tailscale.com/tsweb"
)

const sampleCSV = `icao24,manufacturer,icaoDescription,owner
A54F11,CESSNA,L1P,State Police
ac82ec,BELL,H1T,County Sheriff
short,row
a0b1c2,"DJI, Inc",H4E,
`

func TestLoadCSV(t *testing.T) {
	table, err := LoadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())

	got, ok := table.Lookup(" a54f11 ")
	require.True(t, ok)
	want := Entry{Transponder: "a54f11", Manufacturer: "CESSNA", ICAODescription: "L1P", Owner: "State Police"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Lookup mismatch (-want +got):\n%s", diff)
	}

	got, ok = table.Lookup("A0B1C2")
	require.True(t, ok)
	assert.Equal(t, "DJI, Inc", got.Manufacturer)
	assert.Empty(t, got.Owner)

	_, ok = table.Lookup("ffffff")
	assert.False(t, ok)
}

func TestLoadCSVEmpty(t *testing.T) {
	table, err := LoadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, table.Len())
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.MigrateUp())
	return s
}

func TestStoreMigrations(t *testing.T) {
	s, err := OpenStore(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	defer s.Close()

	v, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Zero(t, v)
	assert.False(t, dirty)

	require.NoError(t, s.MigrateUp())
	require.NoError(t, s.MigrateUp(), "second run is a no-op")

	v, dirty, err = s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
	assert.False(t, dirty)
}

func TestStoreImportAndLookup(t *testing.T) {
	s := openTestStore(t)

	n, err := s.ImportCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, s.Len())

	e, ok := s.Lookup("AC82EC")
	require.True(t, ok)
	assert.Equal(t, Entry{Transponder: "ac82ec", Manufacturer: "BELL", ICAODescription: "H1T", Owner: "County Sheriff"}, e)

	// Re-importing updates rows in place.
	n, err = s.ImportCSV(strings.NewReader("ac82ec,BELL,H2T,Highway Patrol\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 3, s.Len())
	e, _ = s.Lookup("ac82ec")
	assert.Equal(t, "Highway Patrol", e.Owner)
	assert.Equal(t, "H2T", e.ICAODescription)

	_, ok = s.Lookup("000000")
	assert.False(t, ok)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "aircraft.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(sampleCSV), 0o644))
	lookup, closeFn, err := Open(csvPath)
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, Table{}, lookup)
	assert.Equal(t, 3, lookup.Len())

	dbPath := filepath.Join(dir, "registry.db")
	lookup, closeFn, err = Open(dbPath)
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &Store{}, lookup)
	assert.Zero(t, lookup.Len())

	_, _, err = Open(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestAttachAdminRoutes(t *testing.T) {
	s := openTestStore(t)
	mux := http.NewServeMux()
	require.NoError(t, s.AttachAdminRoutes(tsweb.Debugger(mux)))

	req := httptest.NewRequest(http.MethodGet, "/debug/tailsql/", nil)
	req.RemoteAddr = "127.0.0.1:1234"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.NotEqual(t, http.StatusNotFound, rec.Code)
}
