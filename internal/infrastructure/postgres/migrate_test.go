package postgres

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		t.Fatal(err)
	}
	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file %s", name)
		}
	}
	if len(ups) == 0 {
		t.Fatal("no migrations embedded")
	}
	for v := range ups {
		if !downs[v] {
			t.Errorf("%s has no down migration", v)
		}
	}
}

func TestMigrateRejectsUnknownDirection(t *testing.T) {
	if err := Migrate("postgres://unused", "sideways", nil); err == nil {
		t.Fatal("expected an error")
	}
}

func TestInvoiceSchemaMatchesStatuses(t *testing.T) {
	b, err := fs.ReadFile(migrationFS, "migrations/000002_create_invoices.up.sql")
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"'created'", "'payment-requested'", "'paid'", "ON DELETE CASCADE", "NUMERIC(12, 2)"} {
		if !strings.Contains(string(b), s) {
			t.Errorf("invoice migration lacks %s", s)
		}
	}
}
