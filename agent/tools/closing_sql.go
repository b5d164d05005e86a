package tools

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/uptrace/bun"

	contractx "github.com/afquintero/cierre-agent/agent/contract"
)

// ClosingStore reads the closing task table. It owns the only two queries the
// agent ever runs: the per-date aggregate and the per-date top-duration list.
type ClosingStore struct {
	db *bun.DB
}

func NewClosingStore(db *bun.DB) *ClosingStore {
	return &ClosingStore{db: db}
}

const closingSummarySQL = `
SELECT fecha_cierre,
       SUM(duracion)::bigint AS total_segundos,
       COALESCE(SUM(duracion) FILTER (WHERE codigo_tarea = ?), 0)::bigint AS pausa_segundos,
       MIN(inicio) AS inicio_cierre,
       MAX(fin) AS fin_cierre,
       MAX(fin) FILTER (WHERE descripcion_tarea = ?) AS hora_habilitar_menu
FROM cierre
WHERE fecha_cierre IS NOT NULL
GROUP BY fecha_cierre
ORDER BY fecha_cierre`

const topTasksSQL = `
SELECT fecha_cierre,
       duracion::bigint AS duracion_segundos,
       codigo_tarea,
       descripcion_tarea,
       inicio,
       fin
FROM cierre
WHERE fecha_cierre = ?
ORDER BY duracion DESC
LIMIT ?`

type closingAggRow struct {
	FechaCierre       time.Time    `bun:"fecha_cierre"`
	TotalSegundos     int64        `bun:"total_segundos"`
	PausaSegundos     int64        `bun:"pausa_segundos"`
	InicioCierre      time.Time    `bun:"inicio_cierre"`
	FinCierre         time.Time    `bun:"fin_cierre"`
	HoraHabilitarMenu sql.NullTime `bun:"hora_habilitar_menu"`
}

type taskDetailRow struct {
	FechaCierre      time.Time `bun:"fecha_cierre"`
	DuracionSegundos int64     `bun:"duracion_segundos"`
	CodigoTarea      string    `bun:"codigo_tarea"`
	DescripcionTarea string    `bun:"descripcion_tarea"`
	Inicio           time.Time `bun:"inicio"`
	Fin              time.Time `bun:"fin"`
}

// Summaries aggregates every closing date: total duration, duration without
// pause tasks, first start, last end, and the menu-enable milestone.
func (s *ClosingStore) Summaries(ctx context.Context) ([]ClosingSummary, error) {
	var rows []closingAggRow
	if err := s.db.NewRaw(closingSummarySQL, PauseTaskCode, MenuEnableTaskDesc).Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("query closing summaries: %w", err)
	}

	out := make([]ClosingSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, summaryFromAggRow(row))
	}
	return out, nil
}

// TopTasks returns the longest-running tasks of one closing date, most
// expensive first. A date with no rows yields an empty slice.
func (s *ClosingStore) TopTasks(ctx context.Context, fechaCierre string) ([]TaskDetail, error) {
	var rows []taskDetailRow
	if err := s.db.NewRaw(topTasksSQL, fechaCierre, topTasksLimit).Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("query top tasks for %s: %w", fechaCierre, err)
	}

	out := make([]TaskDetail, 0, len(rows))
	for _, row := range rows {
		out = append(out, TaskDetail{
			FechaCierre:      row.FechaCierre.Format(closingDateLayout),
			DuracionSegundos: row.DuracionSegundos,
			Duracion:         secondsToClock(row.DuracionSegundos),
			CodigoTarea:      row.CodigoTarea,
			DescripcionTarea: row.DescripcionTarea,
			Inicio:           formatTimestamp(row.Inicio),
			Fin:              formatTimestamp(row.Fin),
		})
	}
	return out, nil
}

func summaryFromAggRow(row closingAggRow) ClosingSummary {
	summary := ClosingSummary{
		FechaCierre:       row.FechaCierre.Format(closingDateLayout),
		DuracionTotal:     secondsToClock(row.TotalSegundos),
		DuracionSinPausas: secondsToClock(row.TotalSegundos - row.PausaSegundos),
		InicioCierre:      formatTimestamp(row.InicioCierre),
		FinCierre:         formatTimestamp(row.FinCierre),
	}
	if row.HoraHabilitarMenu.Valid {
		summary.HoraHabilitarMenu = formatTimestamp(row.HoraHabilitarMenu.Time)
	}
	return summary
}

// SQLTools builds the tool set backed directly by the closing database.
func SQLTools(store *ClosingStore) []Descriptor {
	return []Descriptor{
		{
			Name: "obtener_datos_por_proceso_de_cierre",
			Desc: "Retorna los datos del proceso de cierre para todas las fechas disponibles en formato json con los campos: " +
				"FECHA_CIERRE (fecha del cierre), DURACION_TOTAL (duracion de todo el proceso de cierre de cada fecha), " +
				"DURACION_SIN_PAUSAS (duracion de las tareas de cierre sin contar las pausas), INICIO_CIERRE (fecha y hora de inicio del cierre), " +
				"FIN_CIERRE (fecha y hora de fin de todo el cierre), HORA_HABILITAR_MENU (fecha y hora en que finalizo la tarea de habilitar menu, lo que permite abrir oficinas).",
			Fetch: func(ctx context.Context, _ map[string]any) (string, error) {
				summaries, err := store.Summaries(ctx)
				if err != nil {
					return "", fmt.Errorf("%w: %v", contractx.ErrFetchFailed, err)
				}
				return marshalRecords(summaries)
			},
		},
		{
			Name: "obtener_datos_tareas_mayor_duracion_por_fecha",
			Desc: "Retorna el detalle de las 10 tareas de mayor duracion de una fecha de cierre en formato json con los campos: " +
				"FECHA_CIERRE, DURACION (duracion de la tarea), CODIGO_TAREA (identificador de la tarea), " +
				"DESCRIPCION_TAREA (descripcion que complementa el codigo), INICIO y FIN (fecha y hora de inicio y fin de la tarea). " +
				"No tiene informacion del cierre completo, solamente de las 10 tareas de mayor duracion.",
			Params: map[string]*schema.ParameterInfo{
				"fecha_cierre": {
					Type:     schema.String,
					Desc:     "Fecha de cierre en formato YYYY-MM-DD",
					Required: true,
				},
			},
			Fetch: func(ctx context.Context, args map[string]any) (string, error) {
				fecha, err := closingDateArg(args)
				if err != nil {
					return "", err
				}
				tasks, err := store.TopTasks(ctx, fecha)
				if err != nil {
					return "", fmt.Errorf("%w: %v", contractx.ErrFetchFailed, err)
				}
				return marshalRecords(tasks)
			},
		},
	}
}

func marshalRecords[T any](records []T) (string, error) {
	if records == nil {
		records = make([]T, 0)
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("%w: marshal records: %v", contractx.ErrFetchFailed, err)
	}
	return string(payload), nil
}
