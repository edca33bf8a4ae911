package export

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var brPrinter = message.NewPrinter(language.BrazilianPortuguese)

// FormatBRL formata como moeda brasileira: R$ 1.234,56.
func FormatBRL(d decimal.Decimal) string {
	s := FormatDecimal(d)
	if strings.HasPrefix(s, "-") {
		return "-R$ " + s[1:]
	}
	return "R$ " + s
}

// FormatDecimal escreve d com duas casas, vírgula decimal e ponto de milhar.
// O arredondamento é feito no decimal; o float só carrega o valor já com duas casas.
func FormatDecimal(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return brPrinter.Sprintf("%.2f", f)
}
