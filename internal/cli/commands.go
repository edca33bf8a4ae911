package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"nfse-busca/internal/api"
	"nfse-busca/internal/export"
	"nfse-busca/internal/session"
)

func (a *App) listCommand(args []string) error {
	fs := flag.NewFlagSet("listar", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cf := bindCriteriaFlags(fs)
	asJSON := fs.Bool("json", false, "saída em JSON")
	sheet := fs.String("planilha", "", "grava as linhas listadas em uma planilha local")
	if err := fs.Parse(args); err != nil {
		return usageErr("%v", err)
	}
	if fs.NArg() > 0 {
		return usageErr("argumento inesperado: %s", fs.Arg(0))
	}

	sess := a.newSession()
	defer sess.Close()

	if err := cf.apply(sess); err != nil {
		return err
	}

	ctx, cancel := a.requestContext()
	defer cancel()
	if err := sess.Refresh(ctx); err != nil {
		return err
	}

	st := sess.State()
	if *asJSON {
		enc := json.NewEncoder(a.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(api.ListResponse{NFSes: st.Rows, Count: st.Count}); err != nil {
			return err
		}
	} else {
		printRecords(a.Stdout, st, a.clock()().Location())
	}

	if *sheet != "" {
		return writeSheet(sess, *sheet, a.Stdout)
	}
	return nil
}

func (a *App) exportCommand(args []string) error {
	fs := flag.NewFlagSet("exportar", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cf := bindCriteriaFlags(fs)
	if err := fs.Parse(args); err != nil {
		return usageErr("%v", err)
	}
	if fs.NArg() > 0 {
		return usageErr("argumento inesperado: %s", fs.Arg(0))
	}

	sess := a.newSession()
	defer sess.Close()

	if err := cf.apply(sess); err != nil {
		return err
	}

	ctx, cancel := a.requestContext()
	defer cancel()

	// a exportação geral só é liberada com resultado na listagem
	if err := sess.Refresh(ctx); err != nil {
		return err
	}
	path, err := sess.ExportAll(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Stdout, "planilha salva em %s\n", path)
	return nil
}

func (a *App) exportOneCommand(args []string) error {
	if len(args) != 1 {
		return usageErr("uso: nfse-busca exportar-nota <chave_acesso>")
	}

	sess := a.newSession()
	defer sess.Close()

	ctx, cancel := a.requestContext()
	defer cancel()

	path, err := sess.ExportOne(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Stdout, "planilha salva em %s\n", path)
	return nil
}

func writeSheet(sess *session.Session, path string, out io.Writer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("erro criando planilha %s: %w", path, err)
	}
	if err := sess.WriteListed(f); err != nil {
		f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(out, "planilha salva em %s\n", path)
	return nil
}

func printRecords(w io.Writer, st session.State, loc *time.Location) {
	if len(st.Rows) == 0 {
		fmt.Fprintln(w, "Nenhum resultado encontrado.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RPS\tSérie\tNFSE\tData Emissão\tSituação\tPrestador\tTomador\tValor Serviços\tChave acesso")
	for _, r := range st.Rows {
		emitted := r.DataEmissao
		if t, err := r.EmittedAt(loc); err == nil {
			emitted = t.In(loc).Format("02/01/2006 15:04:05")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.NumRPS, r.Serie, r.NumNFSe, emitted, r.Status,
			r.Prestador, r.Tomador, export.FormatBRL(r.ValorServicos.Decimal), r.ChaveAcesso,
		)
	}
	tw.Flush()
	fmt.Fprintf(w, "Exibindo %d de %d registros\n", len(st.Rows), st.Count)
}
