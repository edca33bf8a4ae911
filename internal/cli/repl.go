package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"nfse-busca/internal/filter"
	"nfse-busca/internal/session"
)

const prompt = "nfse> "

// interactive é a sessão com rascunho e filtro confirmado: as edições só valem
// para a consulta depois de "aplicar"; atalhos, busca e "limpar" valem na hora.
func (a *App) interactive() error {
	// a busca rápida responde fora do laço de comandos
	stdout := a.Stdout
	out := &lockedWriter{w: stdout}
	a.Stdout = out
	defer func() { a.Stdout = stdout }()

	loc := a.clock()().Location()
	sess := a.newSessionWith(session.Options{
		OnSearch: func(st session.State, err error) {
			if err != nil {
				writeError(out, err)
				return
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "resultado da busca:")
			printRecords(out, st, loc)
		},
	})
	defer sess.Close()

	fmt.Fprintln(a.Stdout, `nfse-busca interativo. Digite "ajuda" para ver os comandos.`)

	scanner := bufio.NewScanner(a.Stdin)
	for {
		fmt.Fprint(a.Stdout, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(a.Stdout)
			return scanner.Err()
		}

		cmd, arg := splitCommand(scanner.Text())
		if cmd == "" {
			continue
		}
		if cmd == "sair" || cmd == "exit" || cmd == "quit" {
			return nil
		}
		if err := a.replCommand(sess, cmd, arg); err != nil {
			writeError(a.Stdout, err)
		}
	}
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func splitCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	cmd, arg, _ := strings.Cut(line, " ")
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}

func (a *App) replCommand(sess *session.Session, cmd, arg string) error {
	form := sess.Form()

	switch cmd {
	case "ajuda", "help", "?":
		printReplHelp(a.Stdout, a.debounce())

	case "filtro", "set":
		name, value, _ := strings.Cut(arg, " ")
		field, ok := lookupField(name)
		if !ok {
			return fmt.Errorf("campo desconhecido: %q", name)
		}
		if err := form.SetField(field, strings.TrimSpace(value)); err != nil {
			return err
		}
		printDraftErrors(a.Stdout, form.DraftErrors())

	case "aplicar":
		ctx, cancel := a.requestContext()
		defer cancel()
		if err := sess.Apply(ctx); err != nil {
			return err
		}
		printRecords(a.Stdout, sess.State(), form.Now().Location())

	case "cancelar":
		form.DiscardDraft()
		fmt.Fprintln(a.Stdout, "rascunho descartado")

	case "limpar":
		ctx, cancel := a.requestContext()
		defer cancel()
		if err := sess.Reset(ctx); err != nil {
			return err
		}
		printRecords(a.Stdout, sess.State(), form.Now().Location())

	case "periodo":
		p, err := filter.ParsePreset(arg)
		if err != nil {
			return err
		}
		ctx, cancel := a.requestContext()
		defer cancel()
		if err := sess.Preset(ctx, p); err != nil {
			return err
		}
		printRecords(a.Stdout, sess.State(), form.Now().Location())

	case "busca":
		v := sess.Search(arg)
		fmt.Fprintf(a.Stdout, "busca %q agendada\n", v)

	case "listar":
		ctx, cancel := a.requestContext()
		defer cancel()
		if err := sess.Refresh(ctx); err != nil {
			return err
		}
		printRecords(a.Stdout, sess.State(), form.Now().Location())

	case "mostrar":
		a.printForm(sess)

	case "exportar":
		ctx, cancel := a.requestContext()
		defer cancel()
		path, err := sess.ExportAll(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.Stdout, "planilha salva em %s\n", path)

	case "exportar-nota":
		ctx, cancel := a.requestContext()
		defer cancel()
		path, err := sess.ExportOne(ctx, arg)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.Stdout, "planilha salva em %s\n", path)

	case "planilha":
		if arg == "" {
			return errors.New("informe o arquivo de destino")
		}
		return writeSheet(sess, arg, a.Stdout)

	default:
		return fmt.Errorf("comando desconhecido: %s", cmd)
	}
	return nil
}

func (a *App) printForm(sess *session.Session) {
	form := sess.Form()
	draft, committed := form.Draft(), form.Committed()

	fmt.Fprintf(a.Stdout, "%-16s %-26s %s\n", "campo", "rascunho", "confirmado")
	for _, f := range filter.Fields {
		d, c := draft.Get(f), committed.Get(f)
		if d == "" && c == "" {
			continue
		}
		fmt.Fprintf(a.Stdout, "%-16s %-26s %s\n", f, d, c)
	}

	if p, ok := sess.ActivePreset(); ok {
		fmt.Fprintf(a.Stdout, "atalho ativo: %s\n", p)
	} else {
		fmt.Fprintln(a.Stdout, "atalho ativo: nenhum")
	}
	printDraftErrors(a.Stdout, form.DraftErrors())

	st := sess.State()
	fmt.Fprintf(a.Stdout, "linhas: %d  carregando: %t  exportando: %t\n", len(st.Rows), st.Loading, st.Exporting)
}

func printDraftErrors(w io.Writer, errs filter.ValidationErrors) {
	for _, fe := range errs {
		fmt.Fprintf(w, "  %s: %s\n", fe.Field, fe.Err)
	}
}

func printReplHelp(w io.Writer, debounce time.Duration) {
	fmt.Fprintf(w, `Comandos:
  filtro <campo> <valor>   altera o rascunho (ex: filtro inicio 2024-06-01)
  aplicar                  confirma o rascunho e consulta
  cancelar                 descarta o rascunho
  limpar                   volta ao período de hoje e consulta
  periodo <hoje|7|15|30>   aplica o atalho de período e consulta
  busca <rps>              busca rápida; o resultado aparece após %s sem digitar
  listar                   repete a consulta atual
  mostrar                  mostra rascunho, filtro confirmado e atalho ativo
  exportar                 baixa a planilha de todas as notas do filtro
  exportar-nota <chave>    baixa a planilha de uma nota
  planilha <arquivo>       grava as linhas listadas em uma planilha local
  sair
Datas: AAAA-MM-DD ou AAAA-MM-DDTHH:mm:ss.
`, debounce)
}
