package tools

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/afquintero/cierre-agent/agent/contract"
)

const (
	// PauseTaskCode marks non-working idle intervals excluded from the
	// "sin pausas" duration.
	PauseTaskCode = "PAUSA"
	// MenuEnableTaskDesc identifies the milestone task whose completion
	// allows offices to open.
	MenuEnableTaskDesc = "Habilita accesos al menu"

	topTasksLimit = 10

	closingDateLayout = "2006-01-02"
	timestampLayout   = "2006-01-02 15:04:05"
)

// ClosingSummary is one closing date's aggregate, serialized with the field
// names the model's tool descriptions promise.
type ClosingSummary struct {
	FechaCierre       string `json:"FECHA_CIERRE"`
	DuracionTotal     string `json:"DURACION_TOTAL"`
	DuracionSinPausas string `json:"DURACION_SIN_PAUSAS"`
	InicioCierre      string `json:"INICIO_CIERRE"`
	FinCierre         string `json:"FIN_CIERRE"`
	HoraHabilitarMenu string `json:"HORA_HABILITAR_MENU"`
}

// TaskDetail is one closing task row, used by the top-duration tools.
type TaskDetail struct {
	FechaCierre      string `json:"FECHA_CIERRE"`
	DuracionSegundos int64  `json:"DURACION_SEGUNDOS"`
	Duracion         string `json:"DURACION"`
	CodigoTarea      string `json:"CODIGO_TAREA"`
	DescripcionTarea string `json:"DESCRIPCION_TAREA"`
	Inicio           string `json:"INICIO"`
	Fin              string `json:"FIN"`
}

// secondsToClock renders a duration in seconds as HH:MM:SS. Hours are not
// wrapped at 24 so multi-day backlogs stay visible.
func secondsToClock(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timestampLayout)
}

// closingDateArg extracts and normalizes the mandatory fecha_cierre argument
// supplied by the model.
func closingDateArg(args map[string]any) (string, error) {
	raw, ok := args["fecha_cierre"]
	if !ok {
		return "", fmt.Errorf("%w: fecha_cierre is required", contractx.ErrValidation)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: fecha_cierre must be a string", contractx.ErrValidation)
	}
	s = strings.TrimSpace(s)
	if len(s) > len(closingDateLayout) {
		s = s[:len(closingDateLayout)]
	}
	t, err := time.Parse(closingDateLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: fecha_cierre %q is not a valid date: %v", contractx.ErrValidation, s, err)
	}
	return t.Format(closingDateLayout), nil
}
