package filter

import (
	"errors"
	"strings"
	"time"

	"nfse-busca/internal/dates"
)

// MaxRangeDays é o maior intervalo aceito entre data inicial e final.
const MaxRangeDays = 90

var (
	ErrMissingStart      = errors.New("informe a data inicial")
	ErrStartInFuture     = errors.New("a data inicial não pode ser maior que a data atual")
	ErrStartNotBeforeEnd = errors.New("a data inicial não pode ser maior que a data final")
	ErrRangeTooWide      = errors.New("o intervalo de datas não pode ser maior que 90 dias")
	ErrMissingEnd        = errors.New("informe a data final")
	ErrEndNotAfterStart  = errors.New("a data final deve ser maior que a data inicial")
	ErrEndInFuture       = errors.New("a data final não pode ser maior que a data atual")
)

// FieldError associa uma falha de validação a um campo de data.
type FieldError struct {
	Field Field
	Err   error
}

func (e FieldError) Error() string {
	return string(e.Field) + ": " + e.Err.Error()
}

func (e FieldError) Unwrap() error {
	return e.Err
}

// ValidationErrors lista todas as regras que falharam, na ordem de avaliação.
// Nil significa intervalo válido.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Is permite errors.Is(v, ErrRangeTooWide) sobre o conjunto.
func (v ValidationErrors) Is(target error) bool {
	return v.Has(target)
}

// Has informa se alguma falha corresponde a target.
func (v ValidationErrors) Has(target error) bool {
	for _, e := range v {
		if errors.Is(e.Err, target) {
			return true
		}
	}
	return false
}

// For devolve as falhas de um campo.
func (v ValidationErrors) For(f Field) []error {
	var out []error
	for _, e := range v {
		if e.Field == f {
			out = append(out, e.Err)
		}
	}
	return out
}

// First devolve a primeira falha do campo (a mensagem exibida ao operador), ou nil.
func (v ValidationErrors) First(f Field) error {
	for _, e := range v {
		if e.Field == f {
			return e.Err
		}
	}
	return nil
}

// ValidateRange avalia as regras de negócio do intervalo de datas.
// O fuso de now é o fuso local usado para interpretar os valores.
func ValidateRange(r DateRange, now time.Time) ValidationErrors {
	loc := now.Location()
	var errs ValidationErrors

	start, hasStart, err := parseDate(r.Start, loc)
	if err != nil {
		errs = append(errs, FieldError{FieldInitialDate, err})
	}
	end, hasEnd, err := parseDate(r.End, loc)
	if err != nil {
		errs = append(errs, FieldError{FieldFinalDate, err})
	}

	// data inicial
	switch {
	case r.Start == "":
		errs = append(errs, FieldError{FieldInitialDate, ErrMissingStart})
	case hasStart:
		if start.After(dates.StartOfDay(now)) {
			errs = append(errs, FieldError{FieldInitialDate, ErrStartInFuture})
		}
		if hasEnd {
			if !start.Before(end) {
				errs = append(errs, FieldError{FieldInitialDate, ErrStartNotBeforeEnd})
			}
			if dates.DaysBetween(start, end) > MaxRangeDays {
				errs = append(errs, FieldError{FieldInitialDate, ErrRangeTooWide})
			}
		}
	}

	// data final
	switch {
	case r.End == "":
		errs = append(errs, FieldError{FieldFinalDate, ErrMissingEnd})
	case hasEnd:
		if hasStart && !end.After(start) {
			errs = append(errs, FieldError{FieldFinalDate, ErrEndNotAfterStart})
		}
		if end.After(dates.EndOfDay(now)) {
			errs = append(errs, FieldError{FieldFinalDate, ErrEndInFuture})
		}
		if hasStart && dates.DaysBetween(start, end) > MaxRangeDays {
			errs = append(errs, FieldError{FieldFinalDate, ErrRangeTooWide})
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// parseDate devolve (instante, presente, erro). Valor vazio não é erro.
func parseDate(raw string, loc *time.Location) (time.Time, bool, error) {
	if raw == "" {
		return time.Time{}, false, nil
	}
	t, err := dates.Normalize(raw, loc)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}
