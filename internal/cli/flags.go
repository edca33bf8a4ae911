package cli

import (
	"flag"
	"strings"

	"nfse-busca/internal/filter"
	"nfse-busca/internal/session"
)

// flagFields liga cada flag da linha de comando a um campo do filtro.
var flagFields = []struct {
	name  string
	field filter.Field
	usage string
}{
	{"inicio", filter.FieldInitialDate, "data inicial"},
	{"fim", filter.FieldFinalDate, "data final"},
	{"busca", filter.FieldSearch, "busca pela RPS"},
	{"serie", filter.FieldSerie, "série"},
	{"rps-inicial", filter.FieldInitialRps, "RPS inicial"},
	{"rps-final", filter.FieldFinalRps, "RPS final"},
	{"nfse-inicial", filter.FieldInitialNfse, "NFSe inicial"},
	{"nfse-final", filter.FieldFinalNfse, "NFSe final"},
	{"municipio", filter.FieldMunicipio, "município"},
	{"cnpj-prestador", filter.FieldCNPJPrestador, "CNPJ do prestador"},
	{"cnpj-tomador", filter.FieldCNPJTomador, "CNPJ do tomador"},
	{"status", filter.FieldStatus, "situação"},
	{"tomador", filter.FieldTomador, "tomador"},
	{"prestador", filter.FieldPrestador, "prestador"},
	{"chave", filter.FieldChaveAcesso, "chave de acesso"},
}

// lookupField aceita o nome da flag ou o nome do parâmetro da API.
func lookupField(name string) (filter.Field, bool) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "--")
	for _, ff := range flagFields {
		if ff.name == name || string(ff.field) == name {
			return ff.field, true
		}
	}
	return "", false
}

type criteriaFlags struct {
	fs     *flag.FlagSet
	values map[string]*string
	preset *string
}

func bindCriteriaFlags(fs *flag.FlagSet) *criteriaFlags {
	cf := &criteriaFlags{
		fs:     fs,
		values: make(map[string]*string, len(flagFields)),
	}
	for _, ff := range flagFields {
		cf.values[ff.name] = fs.String(ff.name, "", ff.usage)
	}
	cf.preset = fs.String("periodo", "", "atalho de período: hoje, 7, 15 ou 30")
	return cf
}

// apply grava as flags informadas no rascunho, confirma e aplica o atalho.
func (cf *criteriaFlags) apply(sess *session.Session) error {
	form := sess.Form()

	var err error
	cf.fs.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		field, ok := lookupField(f.Name)
		if !ok {
			return
		}
		if serr := form.SetField(field, *cf.values[f.Name]); serr != nil {
			err = usageErr("--%s: %v", f.Name, serr)
		}
	})
	if err != nil {
		return err
	}

	if err := form.ApplyDraft(); err != nil {
		return err
	}

	if *cf.preset != "" {
		p, err := filter.ParsePreset(*cf.preset)
		if err != nil {
			return usageErr("--periodo: %v", err)
		}
		form.SetPreset(p)
	}
	return nil
}
