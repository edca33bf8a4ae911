package filter

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"nfse-busca/internal/dates"
)

// Param é um par chave/valor de query string.
type Param struct {
	Key   string
	Value string
}

// Params preserva a ordem canônica dos parâmetros.
type Params []Param

// Get devolve o valor de key ("" se ausente).
func (p Params) Get(key string) string {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value
		}
	}
	return ""
}

// Encode monta a query string mantendo a ordem (url.Values ordenaria as chaves).
func (p Params) Encode() string {
	var b strings.Builder
	for i, kv := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv.Value))
	}
	return b.String()
}

// Values converte para url.Values.
func (p Params) Values() url.Values {
	v := make(url.Values, len(p))
	for _, kv := range p {
		v.Set(kv.Key, kv.Value)
	}
	return v
}

// Serialize transforma o filtro confirmado nos parâmetros da listagem.
// Nenhum campo é omitido: ausentes viram string vazia.
func Serialize(c Criteria, loc *time.Location) (Params, error) {
	out := make(Params, 0, len(Fields))
	for _, f := range Fields {
		v, err := serializeField(c, f, loc)
		if err != nil {
			return nil, err
		}
		out = append(out, Param{Key: string(f), Value: v})
	}
	return out, nil
}

// SerializeExport é a variante da exportação: CNPJs sempre só com dígitos.
func SerializeExport(c Criteria, loc *time.Location) (Params, error) {
	c.CNPJPrestador = OnlyDigits(c.CNPJPrestador)
	c.CNPJTomador = OnlyDigits(c.CNPJTomador)
	return Serialize(c, loc)
}

func serializeField(c Criteria, f Field, loc *time.Location) (string, error) {
	switch f {
	case FieldInitialDate, FieldFinalDate:
		raw := c.Get(f)
		if raw == "" {
			return "", nil
		}
		t, err := dates.Normalize(raw, loc)
		if err != nil {
			return "", fmt.Errorf("erro serializando %s: %w", f, err)
		}
		return dates.FormatISO(t), nil
	case FieldStatus:
		if c.Status == StatusTodos {
			return "", nil
		}
		return string(c.Status), nil
	}
	return c.Get(f), nil
}
