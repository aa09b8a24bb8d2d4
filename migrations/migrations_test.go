package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	src, err := iofs.New(FS, ".")
	if err != nil {
		t.Fatalf("iofs source: %v", err)
	}
	defer func() { _ = src.Close() }()

	first, err := src.First()
	if err != nil {
		t.Fatalf("first migration: %v", err)
	}
	if first != 1 {
		t.Fatalf("expected first version 1, got %d", first)
	}

	up, _, err := src.ReadUp(first)
	if err != nil {
		t.Fatalf("read up: %v", err)
	}
	_ = up.Close()
	down, _, err := src.ReadDown(first)
	if err != nil {
		t.Fatalf("read down: %v", err)
	}
	_ = down.Close()
}

func TestInitMigrationCreatesSchema(t *testing.T) {
	data, err := fs.ReadFile(FS, "0001_init.up.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	sql := string(data)
	for _, want := range []string{"CREATE TABLE IF NOT EXISTS doctors", "schedules", "bookings", "ON DELETE CASCADE", "UNIQUE"} {
		if !strings.Contains(sql, want) {
			t.Fatalf("expected %q in init migration", want)
		}
	}
}
