package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/multierr"
)

func TestCreateWritesTimestampedMigration(t *testing.T) {
	dir := t.TempDir()

	path, err := Create(dir, "add_cart_notes")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !fileRe.MatchString(filepath.Base(path)) {
		t.Fatalf("unexpected filename %q", filepath.Base(path))
	}
	if !strings.HasSuffix(path, "_add_cart_notes.sql") {
		t.Fatalf("unexpected path %q", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	content := string(raw)
	if !strings.Contains(content, "-- +goose Up") || !strings.Contains(content, "-- +goose Down") {
		t.Fatalf("template missing goose markers: %q", content)
	}
}

func TestCreateRejectsBadNames(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"", "Add Carts", "add-carts", "carts!"} {
		if _, err := Create(dir, name); err == nil {
			t.Fatalf("expected rejection for %q", name)
		}
	}
}

func TestValidateReportsAllProblemsAtOnce(t *testing.T) {
	dir := t.TempDir()

	good := "20260301120000_create_carts.sql"
	if err := os.WriteFile(filepath.Join(dir, good), []byte("-- +goose Up\nCREATE TABLE carts(id TEXT);\n-- +goose Down\nDROP TABLE carts;\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	badName := "create_carts.sql"
	if err := os.WriteFile(filepath.Join(dir, badName), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	noMarkers := "20260301120500_missing_markers.sql"
	if err := os.WriteFile(filepath.Join(dir, noMarkers), []byte("CREATE TABLE x(id TEXT);\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	err := Validate(dir)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	// One for the bad filename, two for the missing markers.
	if got := len(multierr.Errors(err)); got != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", got, err)
	}
}

func TestValidateCleanDir(t *testing.T) {
	dir := t.TempDir()

	path, err := Create(dir, "create_products")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := Validate(dir); err != nil {
		t.Fatalf("validate %s: %v", path, err)
	}
}

func TestValidateShippedMigrations(t *testing.T) {
	if err := Validate("migrations"); err != nil {
		t.Fatalf("shipped migrations invalid: %v", err)
	}
}
