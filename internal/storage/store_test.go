package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/claude/mapty/internal/config"
	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/session"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/redis/go-redis/v9"
)

// exerciseStore runs the get/set/clear contract against any backend.
func exerciseStore(t *testing.T, s session.Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "workouts"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v; want not found", ok, err)
	}
	if err := s.Set(ctx, "workouts", `[{"id":"a"}]`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "workouts", `[{"id":"b"}]`); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	v, ok, err := s.Get(ctx, "workouts")
	if err != nil || !ok {
		t.Fatalf("Get = ok %v, err %v", ok, err)
	}
	if v != `[{"id":"b"}]` {
		t.Errorf("Get = %q, want the second value", v)
	}
	if err := s.Clear(ctx, "workouts"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, err := s.Get(ctx, "workouts"); err != nil || ok {
		t.Errorf("Get after Clear = ok %v, err %v; want not found", ok, err)
	}
	if err := s.Clear(ctx, "never-set"); err != nil {
		t.Errorf("Clear(missing) = %v, want nil", err)
	}
}

// TestMemoryStore verifies the in-memory backend honors the store contract.
func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

// TestSQLiteStore verifies the SQLite backend honors the store contract and
// creates its parent directory.
func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "mapty.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

// TestSQLiteStoreSurvivesReopen verifies values persist across connections,
// which is what lets a restarted server restore its workouts.
func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapty.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "workouts", "[]"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if v, ok, err := s.Get(ctx, "workouts"); err != nil || !ok || v != "[]" {
		t.Errorf("Get after reopen = %q, %v, %v", v, ok, err)
	}
}

// TestRedisStore verifies the Redis backend against miniredis.
func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := OpenRedis(context.Background(), mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

// TestRedisStoreUnavailable verifies connection failures surface as errors
// rather than as a missing key.
func TestRedisStoreUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	s := NewRedisStore(redis.NewClient(&redis.Options{Addr: addr}))
	defer s.Close()

	if _, _, err := s.Get(context.Background(), "workouts"); err == nil {
		t.Fatal("expected error from closed redis")
	}
	if _, err := OpenRedis(context.Background(), addr, "", 0); err == nil {
		t.Fatal("expected ping error")
	}
}

// TestPostgresStore verifies the queries issued for each store operation.
func TestPostgresStore(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	s := NewPostgresStore(mock)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT value FROM kv_store WHERE key = \$1`).
		WithArgs("workouts").
		WillReturnError(pgx.ErrNoRows)
	if _, ok, err := s.Get(ctx, "workouts"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v", ok, err)
	}

	mock.ExpectExec(`INSERT INTO kv_store`).
		WithArgs("workouts", "[]").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	if err := s.Set(ctx, "workouts", "[]"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	mock.ExpectQuery(`SELECT value FROM kv_store WHERE key = \$1`).
		WithArgs("workouts").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("[]"))
	if v, ok, err := s.Get(ctx, "workouts"); err != nil || !ok || v != "[]" {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}

	mock.ExpectExec(`DELETE FROM kv_store WHERE key = \$1`).
		WithArgs("workouts").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	if err := s.Clear(ctx, "workouts"); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// TestPostgresStoreErrors verifies driver errors are wrapped, not swallowed.
func TestPostgresStoreErrors(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	s := NewPostgresStore(mock)
	ctx := context.Background()
	boom := errors.New("connection reset")

	mock.ExpectQuery(`SELECT value FROM kv_store`).WithArgs("workouts").WillReturnError(boom)
	if _, _, err := s.Get(ctx, "workouts"); !errors.Is(err, boom) {
		t.Errorf("Get error = %v, want wrapped %v", err, boom)
	}
	mock.ExpectExec(`INSERT INTO kv_store`).WithArgs("workouts", "[]").WillReturnError(boom)
	if err := s.Set(ctx, "workouts", "[]"); !errors.Is(err, boom) {
		t.Errorf("Set error = %v, want wrapped %v", err, boom)
	}
	mock.ExpectExec(`DELETE FROM kv_store`).WithArgs("workouts").WillReturnError(boom)
	if err := s.Clear(ctx, "workouts"); !errors.Is(err, boom) {
		t.Errorf("Clear error = %v, want wrapped %v", err, boom)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// TestOpen verifies driver selection for the backends that need no server.
func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StorageConfig{Driver: config.DriverMemory})
	if err != nil {
		t.Fatalf("Open(memory): %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("Open(memory) = %T", s)
	}

	s, err = Open(ctx, config.StorageConfig{Driver: config.DriverSQLite, SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "m.db")}})
	if err != nil {
		t.Fatalf("Open(sqlite): %v", err)
	}
	defer s.Close()
	if _, ok := s.(*SQLiteStore); !ok {
		t.Errorf("Open(sqlite) = %T", s)
	}

	if _, err := Open(ctx, config.StorageConfig{Driver: "etcd"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}

// TestManagerRoundTripSQLite verifies workouts submitted through a manager
// are restored by a second manager reading the same SQLite file.
func TestManagerRoundTripSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mapty.db")

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	mgr := session.NewManager(session.Deps{Store: s})
	if err := mgr.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	run, err := mgr.SubmitNewWorkout(ctx, session.Submission{
		Type: "running", Distance: "5", Duration: "27.5", CadenceOrElevation: "172",
		Coords: models.Coordinates{Lat: 39.7, Lng: -105.2},
	})
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	restored := session.NewManager(session.Deps{Store: s})
	if err := restored.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	got, ok := restored.Workout(run.ID)
	if !ok {
		t.Fatalf("workout %s not restored", run.ID)
	}
	if got.Running.PaceMinPerKm != run.Running.PaceMinPerKm || got.Description != run.Description {
		t.Errorf("restored = %+v, want %+v", got, run)
	}
}
