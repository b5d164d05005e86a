package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/parquet-go/parquet-go"

	contractx "github.com/afquintero/cierre-agent/agent/contract"
	datalakex "github.com/afquintero/cierre-agent/pkg/datalake"
)

// parquetTaskRow mirrors the columns of the per-task detail export.
type parquetTaskRow struct {
	FechaCierre      string `parquet:"FECHA_CIERRE"`
	DuracionSegundos int64  `parquet:"DURACION_SEGUNDOS"`
	CodigoTarea      string `parquet:"CODIGO_TAREA"`
	DescripcionTarea string `parquet:"DESCRIPCION_TAREA"`
	Inicio           string `parquet:"INICIO"`
	Fin              string `parquet:"FIN"`
}

// DatalakeTools builds the tool set backed by the datalake exports: two JSON
// summary endpoints and the columnar per-task detail file.
func DatalakeTools(client *datalakex.Client, cfg datalakex.Config) []Descriptor {
	return []Descriptor{
		{
			Name: "obtener_datos_cierre_comercial",
			Desc: "Retorna los datos del proceso de cierre comercial para todas las fechas disponibles en formato json con los campos: " +
				"FECHA_CIERRE, DURACION_TOTAL, DURACION_SIN_PAUSAS, INICIO_CIERRE, FIN_CIERRE y " +
				"HORA_HABILITAR_MENU (fecha y hora en que finalizo la tarea de habilitar menu, lo que permite abrir oficinas; " +
				"cuando den este dato, puntualice si se logro antes de las 8:00 am o no).",
			Fetch: func(ctx context.Context, _ map[string]any) (string, error) {
				return fetchJSONSummary(ctx, client, cfg.ResumenCierreURL)
			},
		},
		{
			Name: "obtener_datos_tareas_mayor_duracion_por_fecha",
			Desc: "Retorna el detalle de las 10 tareas de mayor duracion del cierre comercial para una fecha de cierre en formato json con los campos: " +
				"FECHA_CIERRE, DURACION, DURACION_SEGUNDOS, CODIGO_TAREA, DESCRIPCION_TAREA, INICIO y FIN. " +
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
				body, err := client.Fetch(ctx, cfg.DetalleTareasURL)
				if err != nil {
					return "", fmt.Errorf("%w: %v", contractx.ErrFetchFailed, err)
				}
				tasks, err := topTasksFromParquet(body, fecha)
				if err != nil {
					return "", err
				}
				return marshalRecords(tasks)
			},
		},
		{
			Name: "obtener_datos_cierre_normativo",
			Desc: "Retorna los datos del cierre normativo para todas las fechas disponibles en formato json con los campos: " +
				"FECHA_CIERRE, INICIO_BANDEJA4 (inicio del proceso para la Super Financiera, no es relevante a menos que lo pregunten), " +
				"INICIO_BANDEJA8 (inicio del proceso mas demorado del cierre, no es relevante a menos que lo pregunten), " +
				"FIN_BANDEJA4 (fecha en la que la informacion estuvo disponible para entregar a la Super Financiera) y " +
				"FIN_BANDEJA8 (fecha y hora en que finalizo todo el proceso de cierre).",
			Fetch: func(ctx context.Context, _ map[string]any) (string, error) {
				return fetchJSONSummary(ctx, client, cfg.ResumenCierreNormativoURL)
			},
		},
	}
}

func fetchJSONSummary(ctx context.Context, client *datalakex.Client, endpoint string) (string, error) {
	body, err := client.Fetch(ctx, endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrFetchFailed, err)
	}
	if !json.Valid(body) {
		return "", fmt.Errorf("%w: endpoint returned a non-JSON body", contractx.ErrFetchFailed)
	}
	return string(body), nil
}

// topTasksFromParquet decodes the columnar detail export, keeps the rows of
// one closing date, and returns the longest tasks first, capped at the top 10.
func topTasksFromParquet(body []byte, fechaCierre string) ([]TaskDetail, error) {
	rows, err := parquet.Read[parquetTaskRow](bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("%w: decode parquet detail: %v", contractx.ErrFetchFailed, err)
	}

	matched := make([]parquetTaskRow, 0, topTasksLimit)
	for _, row := range rows {
		if normalizeClosingDate(row.FechaCierre) == fechaCierre {
			matched = append(matched, row)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].DuracionSegundos > matched[j].DuracionSegundos
	})
	if len(matched) > topTasksLimit {
		matched = matched[:topTasksLimit]
	}

	out := make([]TaskDetail, 0, len(matched))
	for _, row := range matched {
		out = append(out, TaskDetail{
			FechaCierre:      normalizeClosingDate(row.FechaCierre),
			DuracionSegundos: row.DuracionSegundos,
			Duracion:         secondsToClock(row.DuracionSegundos),
			CodigoTarea:      row.CodigoTarea,
			DescripcionTarea: row.DescripcionTarea,
			Inicio:           row.Inicio,
			Fin:              row.Fin,
		})
	}
	return out, nil
}

// normalizeClosingDate trims a timestamp-shaped closing date down to its
// YYYY-MM-DD prefix, the way the export sometimes ships it.
func normalizeClosingDate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > len(closingDateLayout) {
		return s[:len(closingDateLayout)]
	}
	return s
}
