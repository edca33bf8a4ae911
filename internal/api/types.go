package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"nfse-busca/internal/dates"
)

// Record é uma linha da listagem de NFSe, com as colunas da grade.
type Record struct {
	ID            Text   `json:"id"`
	Municipio     string `json:"municipio"`
	NumRPS        Text   `json:"num_rps"`
	Serie         Text   `json:"serie"`
	NumNFSe       Text   `json:"num_nfse"`
	DataEmissao   string `json:"ref_dataEmissao"`
	Status        string `json:"status"`
	CNPJPrestador string `json:"cnpj_prestador"`
	CNPJTomador   string `json:"cnpj_tomador"`
	Prestador     string `json:"prestador"`
	Tomador       string `json:"tomador"`
	ChaveAcesso   string `json:"chave_acesso"`
	Descricao     string `json:"descricao"`
	EndPrestador  string `json:"end_prestador"`

	ValorISS                     Amount `json:"valor_iss"`
	BaseCalculo                  Amount `json:"base_calculo"`
	Aliquota                     Amount `json:"aliquota"`
	ValorTotalTributosFederais   Amount `json:"valor_total_tributos_federais"`
	ValorTotalTributosEstaduais  Amount `json:"valor_total_tributos_estaduais"`
	ValorTotalTributosMunicipais Amount `json:"valor_total_tributos_municipais"`
	ValorServicos                Amount `json:"valor_servicos"`
	ValorLiquidoNFSe             Amount `json:"valor_liquido_nfse"`
}

// EmittedAt interpreta ref_dataEmissao. O servidor manda ISO em UTC,
// mas valores sem fuso são lidos no fuso informado.
func (r Record) EmittedAt(loc *time.Location) (time.Time, error) {
	if r.DataEmissao == "" {
		return time.Time{}, fmt.Errorf("ref_dataEmissao vazio: %w", dates.ErrInvalidDateFormat)
	}
	if t, err := time.Parse(time.RFC3339Nano, r.DataEmissao); err == nil {
		return t, nil
	}
	return dates.Normalize(r.DataEmissao, loc)
}

// ListResponse é o corpo de GET /api/nfse.
type ListResponse struct {
	NFSes []Record `json:"nfses"`
	Count int      `json:"count"`
}

// Text aceita string ou número no JSON (ids e numeração variam conforme a prefeitura).
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("valor inválido para texto: %s", data)
	}
	*t = Text(n.String())
	return nil
}

func (t Text) String() string { return string(t) }

// Amount é um valor monetário. Aceita número JSON, string com ponto
// decimal ("1234.56") ou no formato brasileiro ("1.234,56").
type Amount struct {
	decimal.Decimal
}

// NewAmount monta um Amount a partir de texto; usado em testes e na CLI.
func NewAmount(s string) (Amount, error) {
	d, err := parseAmount(s)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Decimal: d}, nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		a.Decimal = decimal.Zero
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	d, err := parseAmount(raw)
	if err != nil {
		return err
	}
	a.Decimal = d
	return nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("valor monetário inválido %q: %w", s, err)
	}
	return d, nil
}
