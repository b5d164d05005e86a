package prompt

import (
	_ "embed"
	"fmt"
	"strings"
	"time"
)

//go:embed template/system.txt
var systemRaw string

// System returns the fixed agent policy augmented with the current calendar
// date, so the model can resolve relative references like "ayer".
func System(now time.Time) string {
	base := strings.TrimSpace(systemRaw)
	return fmt.Sprintf("%s\n\nLa fecha de hoy es %s.", base, now.Format("2006-01-02"))
}
