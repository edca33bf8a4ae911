package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"nfse-busca/internal/config"
	"nfse-busca/internal/filter"
	"nfse-busca/internal/session"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// CodeError carrega o código de saída desejado.
type CodeError struct {
	Code int
	Err  error
}

func (e *CodeError) Error() string { return e.Err.Error() }
func (e *CodeError) Unwrap() error { return e.Err }

func usageErr(format string, args ...any) error {
	return &CodeError{Code: exitUsage, Err: fmt.Errorf(format, args...)}
}

// App reúne o que os comandos precisam. Now nil usa time.Now no fuso configurado.
type App struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Config *config.Config
	Client session.API
	Now    func() time.Time
}

// Run executa a linha de comando e devolve o código de saída.
func (a *App) Run(args []string) int {
	if len(args) == 0 {
		printHelp(a.Stdout)
		return exitOK
	}

	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "listar", "ls":
		err = a.listCommand(rest)
	case "exportar":
		err = a.exportCommand(rest)
	case "exportar-nota":
		err = a.exportOneCommand(rest)
	case "interativo", "repl":
		err = a.interactive()
	case "ajuda", "help", "-h", "--help":
		printHelp(a.Stdout)
	default:
		fmt.Fprintf(a.Stderr, "comando desconhecido: %s\n", cmd)
		printHelp(a.Stderr)
		return exitUsage
	}

	if err != nil {
		writeError(a.Stderr, err)
	}
	return toExitCode(err)
}

func (a *App) clock() func() time.Time {
	if a.Now != nil {
		return a.Now
	}
	loc := time.Local
	if a.Config != nil && a.Config.Location != nil {
		loc = a.Config.Location
	}
	return func() time.Time { return time.Now().In(loc) }
}

func (a *App) newSession() *session.Session {
	return a.newSessionWith(session.Options{})
}

func (a *App) newSessionWith(opts session.Options) *session.Session {
	if a.Config != nil {
		opts.ExportDir = a.Config.ExportDir
		opts.Debounce = a.Config.Debounce
	}
	return session.New(filter.NewForm(a.clock()), a.Client, opts)
}

func (a *App) debounce() time.Duration {
	if a.Config != nil && a.Config.Debounce > 0 {
		return a.Config.Debounce
	}
	return filter.DefaultDebounce
}

func (a *App) requestContext() (context.Context, context.CancelFunc) {
	timeout := 60 * time.Second
	if a.Config != nil && a.Config.HTTPTimeout > 0 {
		// margem para ler o corpo depois do timeout do http.Client
		timeout = a.Config.HTTPTimeout + 5*time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

func toExitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Code
	}
	return exitError
}

func writeError(w io.Writer, err error) {
	var verrs filter.ValidationErrors
	if errors.As(err, &verrs) {
		fmt.Fprintln(w, "erro: filtro inválido")
		for _, fe := range verrs {
			fmt.Fprintf(w, "  %s: %s\n", fe.Field, fe.Err)
		}
		return
	}
	fmt.Fprintf(w, "erro: %s\n", err)
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `nfse-busca: consulta e exportação de NFSe

Uso:
  nfse-busca listar [filtros] [--json] [--planilha arquivo.xlsx]
  nfse-busca exportar [filtros]
  nfse-busca exportar-nota <chave_acesso>
  nfse-busca interativo

Filtros:
  --inicio, --fim          data (AAAA-MM-DD ou AAAA-MM-DDTHH:mm:ss)
  --periodo                hoje | 7 | 15 | 30 (substitui a data inicial)
  --busca                  RPS (somente dígitos)
  --serie, --rps-inicial, --rps-final, --nfse-inicial, --nfse-final
  --municipio, --cnpj-prestador, --cnpj-tomador, --prestador, --tomador
  --status                 Todos | Autorizado | Cancelado
  --chave                  chave de acesso

Sem --inicio/--fim o período é o dia de hoje. O intervalo máximo é de 90 dias.
`)
}
