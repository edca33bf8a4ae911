package filter

import (
	"fmt"
	"strings"
	"time"

	"nfse-busca/internal/dates"
)

// Preset é um dos atalhos de período ("Hoje", "7 Dias", "15 Dias", "30 Dias").
type Preset int

const (
	PresetToday Preset = iota
	PresetSevenDays
	PresetFifteenDays
	PresetThirtyDays
)

// Presets na ordem em que aparecem para o operador.
var Presets = []Preset{PresetToday, PresetSevenDays, PresetFifteenDays, PresetThirtyDays}

// presetToleranceHours: a data inicial casa com o atalho se estiver entre
// 0 e 23 horas depois da âncora (só para frente).
const presetToleranceHours = 23

func (p Preset) String() string {
	switch p {
	case PresetToday:
		return "Hoje"
	case PresetSevenDays:
		return "7 Dias"
	case PresetFifteenDays:
		return "15 Dias"
	case PresetThirtyDays:
		return "30 Dias"
	}
	return fmt.Sprintf("Preset(%d)", int(p))
}

// daysBack é o deslocamento da âncora: N dias recua N-1.
func (p Preset) daysBack() int {
	switch p {
	case PresetSevenDays:
		return 6
	case PresetFifteenDays:
		return 14
	case PresetThirtyDays:
		return 29
	}
	return 0
}

// Anchor devolve a meia-noite local em que o atalho começa.
func (p Preset) Anchor(now time.Time) time.Time {
	return dates.StartOfDay(now).AddDate(0, 0, -p.daysBack())
}

// ParsePreset aceita hoje|7|15|30 (com ou sem "d"/"dias").
func ParsePreset(v string) (Preset, error) {
	s := strings.ToLower(strings.TrimSpace(v))
	s = strings.TrimSuffix(s, "dias")
	s = strings.TrimSuffix(s, "d")
	switch strings.TrimSpace(s) {
	case "hoje", "0":
		return PresetToday, nil
	case "7":
		return PresetSevenDays, nil
	case "15":
		return PresetFifteenDays, nil
	case "30":
		return PresetThirtyDays, nil
	}
	return 0, fmt.Errorf("atalho de período inválido: %q (use hoje, 7, 15 ou 30)", v)
}

// MatchPreset devolve o primeiro atalho ativo para a data inicial confirmada.
func MatchPreset(committedStart, now time.Time) (Preset, bool) {
	active := ActivePresets(committedStart, now)
	if len(active) == 0 {
		return 0, false
	}
	return active[0], true
}

// ActivePresets devolve todos os atalhos que casam. Em operação normal há no
// máximo um; com relógio ou estado inconsistente pode haver nenhum ou vários.
func ActivePresets(committedStart, now time.Time) []Preset {
	selected := dates.StartOfDay(committedStart.In(now.Location()))
	var out []Preset
	for _, p := range Presets {
		diff := dates.HoursBetween(p.Anchor(now), selected)
		if diff >= 0 && diff <= presetToleranceHours {
			out = append(out, p)
		}
	}
	return out
}
