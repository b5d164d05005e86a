package tools

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// openTestDB connects to the database named by TEST_DATABASE_DSN. Aggregate
// shapes are covered by the unit tests on summaryFromAggRow; this exercises
// the real queries end to end when a database is around.
func openTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN is not set")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestClosingStoreAgainstDatabase(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS cierre`); err != nil {
		t.Fatalf("drop table: %v", err)
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE cierre (
			fecha_cierre date NOT NULL,
			duracion bigint NOT NULL,
			codigo_tarea text NOT NULL,
			descripcion_tarea text NOT NULL,
			inicio timestamp NOT NULL,
			fin timestamp NOT NULL
		)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	t.Cleanup(func() { _, _ = db.ExecContext(context.Background(), `DROP TABLE IF EXISTS cierre`) })

	if _, err := db.ExecContext(ctx, `
		INSERT INTO cierre VALUES
		('2024-05-10', 3600, 'T001', 'Respaldo contable',       '2024-05-10 20:00:00', '2024-05-10 21:00:00'),
		('2024-05-10', 1800, ?,      'Pausa operativa',         '2024-05-10 21:00:00', '2024-05-10 21:30:00'),
		('2024-05-10',  900, 'T002', ?,                         '2024-05-10 21:30:00', '2024-05-10 21:45:00'),
		('2024-05-11', 7200, 'T001', 'Respaldo contable',       '2024-05-11 20:00:00', '2024-05-11 22:00:00')`,
		PauseTaskCode, MenuEnableTaskDesc); err != nil {
		t.Fatalf("insert fixtures: %v", err)
	}

	store := NewClosingStore(db)

	summaries, err := store.Summaries(ctx)
	if err != nil {
		t.Fatalf("Summaries() error = %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("Summaries() = %d rows, want 2", len(summaries))
	}

	first := summaries[0]
	if first.FechaCierre != "2024-05-10" {
		t.Fatalf("FechaCierre = %s", first.FechaCierre)
	}
	if first.DuracionTotal != "01:45:00" {
		t.Fatalf("DuracionTotal = %s, want 01:45:00", first.DuracionTotal)
	}
	if first.DuracionSinPausas != "01:15:00" {
		t.Fatalf("DuracionSinPausas = %s, want 01:15:00", first.DuracionSinPausas)
	}
	if first.HoraHabilitarMenu != "2024-05-10 21:45:00" {
		t.Fatalf("HoraHabilitarMenu = %s", first.HoraHabilitarMenu)
	}

	// The second date has no pause tasks: both durations must match.
	second := summaries[1]
	if second.DuracionTotal != second.DuracionSinPausas {
		t.Fatalf("durations differ without pauses: %s vs %s", second.DuracionTotal, second.DuracionSinPausas)
	}
	if second.HoraHabilitarMenu != "" {
		t.Fatalf("HoraHabilitarMenu = %q, want empty", second.HoraHabilitarMenu)
	}

	tasks, err := store.TopTasks(ctx, "2024-05-10")
	if err != nil {
		t.Fatalf("TopTasks() error = %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("TopTasks() = %d rows, want 3", len(tasks))
	}
	if tasks[0].DuracionSegundos != 3600 {
		t.Fatalf("TopTasks()[0].DuracionSegundos = %d, want the longest first", tasks[0].DuracionSegundos)
	}

	empty, err := store.TopTasks(ctx, "2030-01-01")
	if err != nil {
		t.Fatalf("TopTasks(empty date) error = %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("TopTasks(empty date) = %d rows, want 0", len(empty))
	}
}
