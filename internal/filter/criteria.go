package filter

import (
	"fmt"
	"strings"
	"time"

	"nfse-busca/internal/dates"
)

// Field identifica um campo do filtro pelo nome usado na API.
type Field string

const (
	FieldSearch        Field = "search"
	FieldSerie         Field = "serie"
	FieldInitialRps    Field = "initialRps"
	FieldFinalRps      Field = "finalRps"
	FieldInitialNfse   Field = "initialNfse"
	FieldFinalNfse     Field = "finalNfse"
	FieldInitialDate   Field = "initialDate"
	FieldFinalDate     Field = "finalDate"
	FieldMunicipio     Field = "municipio"
	FieldCNPJPrestador Field = "cnpj_prestador"
	FieldCNPJTomador   Field = "cnpj_tomador"
	FieldStatus        Field = "status"
	FieldTomador       Field = "tomador"
	FieldPrestador     Field = "prestador"
	FieldChaveAcesso   Field = "chave_acesso"
)

// Fields é a ordem canônica dos parâmetros enviados à API.
var Fields = []Field{
	FieldSearch,
	FieldSerie,
	FieldInitialRps,
	FieldFinalRps,
	FieldInitialNfse,
	FieldFinalNfse,
	FieldInitialDate,
	FieldFinalDate,
	FieldMunicipio,
	FieldCNPJPrestador,
	FieldCNPJTomador,
	FieldStatus,
	FieldTomador,
	FieldPrestador,
	FieldChaveAcesso,
}

// serieMaxLen replica o limite do campo "Série" no formulário.
const serieMaxLen = 5

// Status da NFSe. StatusTodos e o valor vazio significam "sem filtro".
type Status string

const (
	StatusTodos      Status = "Todos"
	StatusAutorizado Status = "Autorizado"
	StatusCancelado  Status = "Cancelado"
)

// ParseStatus aceita "", Todos, Autorizado ou Cancelado (sem diferenciar caixa).
func ParseStatus(v string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return "", nil
	case "todos":
		return StatusTodos, nil
	case "autorizado":
		return StatusAutorizado, nil
	case "cancelado":
		return StatusCancelado, nil
	}
	return "", fmt.Errorf("status inválido: %q (use Todos, Autorizado ou Cancelado)", v)
}

// DateRange guarda os valores textuais das datas. Vazio = não informado.
type DateRange struct {
	Start string `json:"initialDate"`
	End   string `json:"finalDate"`
}

// Criteria é o conjunto completo de filtros.
type Criteria struct {
	DateRange

	Search        string `json:"search"`
	Serie         string `json:"serie"`
	InitialRps    string `json:"initialRps"`
	FinalRps      string `json:"finalRps"`
	InitialNfse   string `json:"initialNfse"`
	FinalNfse     string `json:"finalNfse"`
	Municipio     string `json:"municipio"`
	CNPJPrestador string `json:"cnpj_prestador"`
	CNPJTomador   string `json:"cnpj_tomador"`
	Status        Status `json:"status"`
	Tomador       string `json:"tomador"`
	Prestador     string `json:"prestador"`
	ChaveAcesso   string `json:"chave_acesso"`
}

// DefaultCriteria devolve o filtro inicial: hoje 00:00:00.000 até hoje 23:59:59.999,
// demais campos vazios.
func DefaultCriteria(now time.Time) Criteria {
	return Criteria{
		DateRange: DateRange{
			Start: dates.FormatLocalMillis(dates.StartOfDay(now)),
			End:   dates.FormatLocalMillis(dates.EndOfDay(now)),
		},
	}
}

// Get devolve o valor bruto de um campo.
func (c *Criteria) Get(f Field) string {
	if p := c.ptr(f); p != nil {
		return *p
	}
	if f == FieldStatus {
		return string(c.Status)
	}
	return ""
}

// set grava o valor já sanitizado em um campo.
func (c *Criteria) set(f Field, v string) error {
	if f == FieldStatus {
		s, err := ParseStatus(v)
		if err != nil {
			return err
		}
		c.Status = s
		return nil
	}
	p := c.ptr(f)
	if p == nil {
		return fmt.Errorf("campo de filtro desconhecido: %q", f)
	}
	*p = sanitize(f, v)
	return nil
}

func (c *Criteria) ptr(f Field) *string {
	switch f {
	case FieldSearch:
		return &c.Search
	case FieldSerie:
		return &c.Serie
	case FieldInitialRps:
		return &c.InitialRps
	case FieldFinalRps:
		return &c.FinalRps
	case FieldInitialNfse:
		return &c.InitialNfse
	case FieldFinalNfse:
		return &c.FinalNfse
	case FieldInitialDate:
		return &c.Start
	case FieldFinalDate:
		return &c.End
	case FieldMunicipio:
		return &c.Municipio
	case FieldCNPJPrestador:
		return &c.CNPJPrestador
	case FieldCNPJTomador:
		return &c.CNPJTomador
	case FieldTomador:
		return &c.Tomador
	case FieldPrestador:
		return &c.Prestador
	case FieldChaveAcesso:
		return &c.ChaveAcesso
	}
	return nil
}

// sanitize aplica as regras de edição de cada campo.
func sanitize(f Field, v string) string {
	switch f {
	case FieldSearch, FieldInitialRps, FieldFinalRps, FieldInitialNfse, FieldFinalNfse, FieldChaveAcesso:
		return OnlyDigits(v)
	case FieldCNPJPrestador, FieldCNPJTomador:
		// valor vindo da máscara 00.000.000/0000-00
		return OnlyDigits(v)
	case FieldSerie:
		r := []rune(v)
		if len(r) > serieMaxLen {
			r = r[:serieMaxLen]
		}
		return string(r)
	}
	return v
}

// OnlyDigits remove tudo que não for dígito ASCII.
func OnlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
