package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"nfse-busca/internal/api"
)

// SheetName é a aba da planilha local gerada por WriteRecords.
const SheetName = "NFSe"

const emissionLayout = "02/01/2006 15:04:05"

var ErrNotSpreadsheet = errors.New("conteúdo recebido não é uma planilha xlsx")

// Colunas na ordem da grade de resultados.
var headers = []string{
	"ID",
	"Município",
	"RPS",
	"Série",
	"NFSE",
	"Data Emissão",
	"Situação",
	"CNPJ Prestador",
	"CNPJ Tomador",
	"Prestador",
	"Tomador",
	"Chave acesso",
	"Descrição",
	"Endereço prestador",
	"Valor ISS",
	"Base cálculo",
	"Alíquota",
	"Tributos federais",
	"Tributos estaduais",
	"Tributos municipais",
	"Valor Serviços",
	"Valor Líquido",
}

type SheetSummary struct {
	Name string
	Rows int
}

// Summary descreve uma planilha baixada.
type Summary struct {
	Sheets []SheetSummary
}

// DataRows soma as linhas de todas as abas, sem contar o cabeçalho de cada uma.
func (s Summary) DataRows() int {
	total := 0
	for _, sh := range s.Sheets {
		if sh.Rows > 1 {
			total += sh.Rows - 1
		}
	}
	return total
}

// Inspect abre a planilha em memória e conta as linhas de cada aba.
func Inspect(data []byte) (Summary, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %v", ErrNotSpreadsheet, err)
	}
	defer f.Close()

	var out Summary
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return Summary{}, fmt.Errorf("erro lendo aba %s: %w", name, err)
		}
		out.Sheets = append(out.Sheets, SheetSummary{Name: name, Rows: len(rows)})
	}
	return out, nil
}

// WriteRecords gera uma planilha com as linhas listadas, formatadas como na grade.
func WriteRecords(w io.Writer, records []api.Record, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("erro renomeando aba: %w", err)
	}

	head := make([]any, len(headers))
	for i, h := range headers {
		head[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &head); err != nil {
		return fmt.Errorf("erro escrevendo cabeçalho: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := recordRow(rec, loc)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("erro escrevendo linha %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("erro gerando planilha: %w", err)
	}
	return nil
}

func recordRow(r api.Record, loc *time.Location) []any {
	emitted := r.DataEmissao
	if t, err := r.EmittedAt(loc); err == nil {
		emitted = t.In(loc).Format(emissionLayout)
	}

	return []any{
		r.ID.String(),
		r.Municipio,
		r.NumRPS.String(),
		r.Serie.String(),
		r.NumNFSe.String(),
		emitted,
		r.Status,
		r.CNPJPrestador,
		r.CNPJTomador,
		r.Prestador,
		r.Tomador,
		r.ChaveAcesso,
		r.Descricao,
		r.EndPrestador,
		FormatBRL(r.ValorISS.Decimal),
		FormatBRL(r.BaseCalculo.Decimal),
		FormatDecimal(r.Aliquota.Decimal),
		FormatBRL(r.ValorTotalTributosFederais.Decimal),
		FormatBRL(r.ValorTotalTributosEstaduais.Decimal),
		FormatBRL(r.ValorTotalTributosMunicipais.Decimal),
		FormatBRL(r.ValorServicos.Decimal),
		FormatBRL(r.ValorLiquidoNFSe.Decimal),
	}
}
