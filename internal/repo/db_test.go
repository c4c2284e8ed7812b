package repo

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/tbourn/portal-rpa/internal/domain"
)

func TestOpenSQLite_ErrorOnBadPath(t *testing.T) {
	base := t.TempDir()
	bad := filepath.Join(base, "does-not-exist", "app.db")

	db, err := OpenSQLite(bad)
	if err == nil || db != nil {
		t.Fatalf("expected error opening %q, got db=%v err=%v", bad, db, err)
	}
	lower := strings.ToLower(err.Error())
	if !(os.IsNotExist(err) ||
		strings.Contains(lower, "unable to open database file") ||
		strings.Contains(lower, "no such file or directory") ||
		strings.Contains(lower, "out of memory")) {
		t.Fatalf("unexpected error opening %q: %v", bad, err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "x"); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("expected unsupported driver error, got %v", err)
	}
}

func TestOpen_SQLiteWithTracing_AndAutoMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reg_data.db")

	db, err := Open("sqlite", path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	var (
		journalMode string
		syncVal     int
		fkOn        int
		busyMS      int
	)
	if err := db.Raw("PRAGMA journal_mode;").Row().Scan(&journalMode); err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	if strings.ToLower(journalMode) != "wal" {
		t.Fatalf("expected journal_mode=wal, got %q", journalMode)
	}
	if err := db.Raw("PRAGMA synchronous;").Row().Scan(&syncVal); err != nil || syncVal != 1 {
		t.Fatalf("expected synchronous=1 (NORMAL), got %d err=%v", syncVal, err)
	}
	if err := db.Raw("PRAGMA foreign_keys;").Row().Scan(&fkOn); err != nil || fkOn != 1 {
		t.Fatalf("expected foreign_keys=1, got %d err=%v", fkOn, err)
	}
	if err := db.Raw("PRAGMA busy_timeout;").Row().Scan(&busyMS); err != nil || busyMS != 5000 {
		t.Fatalf("expected busy_timeout=5000, got %d err=%v", busyMS, err)
	}
	if stats := sqlDB.Stats(); stats.MaxOpenConnections != 10 {
		t.Fatalf("expected MaxOpenConnections=10, got %d", stats.MaxOpenConnections)
	}

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	m := db.Migrator()
	for _, tbl := range []any{&domain.IDMapping{}, &domain.CounterState{}, &domain.SubmissionResult{}} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}

	c, err := GetCounter(context.Background(), db)
	if err != nil || c.LastVal != 0 {
		t.Fatalf("counter should be seeded with 0, got %+v err=%v", c, err)
	}
}

func TestEnsureCounter_DoesNotResetExistingValue(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()

	if err := SetCounter(ctx, db, 42); err != nil {
		t.Fatalf("SetCounter: %v", err)
	}
	if err := EnsureCounter(ctx, db); err != nil {
		t.Fatalf("EnsureCounter: %v", err)
	}
	c, err := GetCounter(ctx, db)
	if err != nil || c.LastVal != 42 {
		t.Fatalf("EnsureCounter must not overwrite, got %+v err=%v", c, err)
	}
	var n int64
	db.Model(&domain.CounterState{}).Count(&n)
	if n != 1 {
		t.Fatalf("expected exactly one counter row, got %d", n)
	}
}

func TestSQLiteDSN(t *testing.T) {
	got := sqliteDSN("a.db")
	if !strings.HasPrefix(got, "a.db?_pragma=journal_mode(WAL)&") || !strings.Contains(got, "_pragma=busy_timeout(5000)") {
		t.Fatalf("unexpected dsn %q", got)
	}
	if got := sqliteDSN("file:x?mode=memory"); !strings.HasPrefix(got, "file:x?mode=memory&_pragma=") {
		t.Fatalf("existing query must be extended, got %q", got)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"UNIQUE constraint failed: id_mappings.message_id", true},
		{"constraint failed: UNIQUE constraint failed (2067)", true},
		{"ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)", true},
		{"no such table: id_mappings", false},
	}
	for _, tc := range cases {
		if got := isUniqueViolation(errString(tc.msg)); got != tc.want {
			t.Fatalf("isUniqueViolation(%q) = %v, want %v", tc.msg, got, tc.want)
		}
	}
	if isUniqueViolation(nil) {
		t.Fatalf("nil is not a violation")
	}
	if !isUniqueViolation(gorm.ErrDuplicatedKey) {
		t.Fatalf("gorm.ErrDuplicatedKey should be a violation")
	}
}

type errString string

func (e errString) Error() string { return string(e) }

// Compile-time guard to ensure signature stability.
var _ func(string) (*gorm.DB, error) = OpenSQLite
