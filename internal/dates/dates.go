package dates

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrInvalidDateFormat indica que o valor não pôde ser convertido em um instante válido.
var ErrInvalidDateFormat = errors.New("formato de data inválido")

const (
	// LayoutDay é a data "pura" (meia-noite local).
	LayoutDay = "2006-01-02"
	// LayoutLocal é o timestamp local de 19 caracteres, sem fuso.
	LayoutLocal = "2006-01-02T15:04:05"
	// LayoutLocalMillis é o timestamp local com milissegundos.
	LayoutLocalMillis = "2006-01-02T15:04:05.000"
	// LayoutISO é o formato de saída em UTC usado nos parâmetros da API.
	LayoutISO = "2006-01-02T15:04:05.000Z"

	// layoutSwapped é como o timestamp de 19 caracteres é remontado antes do parse:
	// a parte de calendário vira DD-MM-YYYY e o horário é mantido.
	layoutSwapped = "02-01-2006T15:04:05"

	localLen = len(LayoutLocal)
	dayMs    = 24 * 60 * 60 * 1000
)

// Normalize converte um valor textual de data em um instante.
//
// Valores com 19 caracteres (YYYY-MM-DDTHH:mm:ss) têm a parte de calendário
// invertida para DD-MM-YYYY antes do parse, concatenando o horário original.
// Os demais valores passam pelo parser geral: YYYY-MM-DD (meia-noite local),
// YYYY-MM-DDTHH:mm:ss.SSS (local) ou RFC 3339 com offset.
func Normalize(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}

	value := strings.TrimSpace(raw)
	if len(value) == localLen {
		swapped := reverseCalendar(value[:10]) + value[10:]
		t, err := time.ParseInLocation(layoutSwapped, swapped, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, raw)
		}
		return t, nil
	}

	for _, layout := range []string{LayoutDay, LayoutLocalMillis} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.In(loc), nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, raw)
}

// reverseCalendar transforma "YYYY-MM-DD" em "DD-MM-YYYY".
func reverseCalendar(day string) string {
	parts := strings.Split(day, "-")
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "-")
}

// StartOfDay devolve 00:00:00.000 do dia de t, no fuso de t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay devolve 23:59:59.999 do dia de t, no fuso de t.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// DaysBetween conta dias inteiros entre a e b, arredondando para cima a
// diferença absoluta em milissegundos.
func DaysBetween(a, b time.Time) int {
	diff := b.Sub(a).Milliseconds()
	if diff < 0 {
		diff = -diff
	}
	return int(math.Ceil(float64(diff) / dayMs))
}

// HoursBetween devolve (to - from) em horas inteiras, truncando em direção a zero.
func HoursBetween(from, to time.Time) int {
	return int(to.Sub(from) / time.Hour)
}

// FormatLocal formata t como YYYY-MM-DDTHH:mm:ss no fuso de t.
func FormatLocal(t time.Time) string {
	return t.Format(LayoutLocal)
}

// FormatLocalMillis formata t como YYYY-MM-DDTHH:mm:ss.SSS no fuso de t.
func FormatLocalMillis(t time.Time) string {
	return t.Format(LayoutLocalMillis)
}

// FormatISO converte t para UTC e formata em ISO-8601 com milissegundos.
func FormatISO(t time.Time) string {
	return t.UTC().Format(LayoutISO)
}
