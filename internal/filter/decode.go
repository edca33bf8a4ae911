package filter

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// DecodeCriteria lê um filtro em JSON (as mesmas chaves dos parâmetros da API),
// aplica as regras de edição de cada campo e valida o intervalo de datas.
// Sem nenhuma das duas datas, vale o período padrão (hoje).
func DecodeCriteria(r io.Reader, now time.Time) (Criteria, error) {
	var raw Criteria
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return Criteria{}, fmt.Errorf("erro decodificando filtro: %w", err)
	}

	out := DefaultCriteria(now)
	if raw.Start != "" || raw.End != "" {
		out.DateRange = DateRange{}
	}
	for _, f := range Fields {
		v := raw.Get(f)
		if v == "" {
			continue
		}
		if err := out.set(f, v); err != nil {
			return Criteria{}, err
		}
	}

	if errs := ValidateRange(out.DateRange, now); len(errs) > 0 {
		return Criteria{}, errs
	}
	return out, nil
}
