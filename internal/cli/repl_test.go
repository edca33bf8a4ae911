package cli

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestInteractiveDraftAndApply(t *testing.T) {
	script := strings.Join([]string{
		"filtro inicio 2024-01-01",
		"aplicar",
		"filtro inicio 2024-06-10",
		"filtro municipio Curitiba",
		"aplicar",
		"mostrar",
		"sair",
	}, "\n")
	app, client, stdout, stderr := newTestApp(t, script)

	if code := app.Run([]string{"interativo"}); code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "o intervalo de datas não pode ser maior que 90 dias") {
		t.Fatalf("expected inline range error:\n%s", out)
	}
	if len(client.lists) != 1 {
		t.Fatalf("only the valid apply should query, got %d", len(client.lists))
	}
	params := client.lastList()
	if params.Get("initialDate") != "2024-06-10T03:00:00.000Z" || params.Get("municipio") != "Curitiba" {
		t.Fatalf("unexpected params: %s", params.Encode())
	}
	if !strings.Contains(out, "atalho ativo: nenhum") {
		t.Fatalf("expected no active preset:\n%s", out)
	}
}

func TestInteractivePresetAndCancel(t *testing.T) {
	script := strings.Join([]string{
		"periodo 7",
		"filtro inicio 2024-06-01",
		"cancelar",
		"mostrar",
		"limpar",
		"mostrar",
	}, "\n")
	app, client, stdout, stderr := newTestApp(t, script)

	if code := app.Run([]string{"interativo"}); code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	out := stdout.String()
	first := strings.Index(out, "atalho ativo: 7 Dias")
	second := strings.LastIndex(out, "atalho ativo: Hoje")
	if first < 0 || second < first {
		t.Fatalf("expected 7-day preset then today after reset:\n%s", out)
	}
	if strings.Contains(out, "2024-06-01") {
		t.Fatalf("cancelled draft should not be shown:\n%s", out)
	}
	if len(client.lists) != 2 {
		t.Fatalf("preset and reset should each query once, got %d", len(client.lists))
	}
}

func TestInteractiveExportAndSearch(t *testing.T) {
	script := strings.Join([]string{
		"exportar",
		"listar",
		"exportar",
		"exportar-nota 35501",
		"busca 12-3",
		"comando-inexistente",
	}, "\n")
	app, client, stdout, stderr := newTestApp(t, script)
	app.Config.Debounce = time.Second

	if code := app.Run([]string{"interativo"}); code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "erro: nenhum resultado para exportar") {
		t.Fatalf("export before listing should be refused:\n%s", out)
	}
	if strings.Count(out, "planilha salva em") != 2 {
		t.Fatalf("expected two exports:\n%s", out)
	}
	if !strings.Contains(out, `busca "123" agendada`) {
		t.Fatalf("search should keep digits only:\n%s", out)
	}
	if !strings.Contains(out, "erro: comando desconhecido: comando-inexistente") {
		t.Fatalf("unknown command should be reported:\n%s", out)
	}
	if client.exportKey != "35501" {
		t.Fatalf("unexpected key: %s", client.exportKey)
	}

	// a sessão é fechada no fim do comando: a busca pendente não dispara
	time.Sleep(50 * time.Millisecond)
	client.mu.Lock()
	n := len(client.lists)
	client.mu.Unlock()
	if n != 1 {
		t.Fatalf("pending search should be cancelled on exit, got %d listings", n)
	}
}

func TestInteractiveSearchPrintsResult(t *testing.T) {
	in, feed := io.Pipe()
	app, client, _, stderr := newTestApp(t, "")
	app.Stdin = in
	out := &syncBuffer{}
	app.Stdout = out

	code := make(chan int, 1)
	go func() { code <- app.Run([]string{"interativo"}) }()

	if _, err := io.WriteString(feed, "busca 12-3\n"); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(out.String(), "Exibindo 1 de 1 registros") {
		if time.Now().After(deadline) {
			t.Fatalf("search result never printed:\n%s", out.String())
		}
		time.Sleep(5 * time.Millisecond)
	}

	io.WriteString(feed, "sair\n")
	feed.Close()
	if c := <-code; c != exitOK {
		t.Fatalf("exit %d: %s", c, stderr.String())
	}
	if !strings.Contains(out.String(), "resultado da busca:") {
		t.Fatalf("missing search header:\n%s", out.String())
	}
	if got := client.lastList().Get("search"); got != "123" {
		t.Fatalf("unexpected search param: %q", got)
	}
}
