package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"nfse-busca/internal/api"
	"nfse-busca/internal/dates"
	"nfse-busca/internal/export"
	"nfse-busca/internal/filter"
	"nfse-busca/internal/metrics"
)

var (
	// ErrStale indica que a resposta chegou depois de uma consulta mais nova e foi descartada.
	ErrStale            = errors.New("resposta obsoleta descartada")
	ErrNothingToExport  = errors.New("nenhum resultado para exportar")
	ErrExportInProgress = errors.New("já existe uma exportação em andamento")
	ErrMissingKey       = errors.New("informe a chave de acesso")
)

// API é o que a sessão precisa do cliente HTTP.
type API interface {
	List(ctx context.Context, params filter.Params) (api.ListResponse, error)
	ExportOne(ctx context.Context, chave string) ([]byte, error)
	ExportAll(ctx context.Context, params filter.Params) ([]byte, error)
}

type Options struct {
	ExportDir string
	Debounce  time.Duration
	// OnSearch recebe o resultado de cada busca rápida concluída.
	OnSearch func(State, error)
}

// State é uma foto do resultado e dos indicadores de ocupado.
type State struct {
	Rows      []api.Record
	Count     int
	Loading   bool
	Exporting bool
}

// Session liga o formulário de filtros ao cliente da API.
// Listagem e exportação têm indicadores independentes e podem se sobrepor.
type Session struct {
	form      *filter.Form
	client    API
	exportDir string
	debouncer *filter.Debouncer
	onSearch  func(State, error)

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	gen       uint64
	rows      []api.Record
	count     int
	loading   bool
	exporting bool
}

func New(form *filter.Form, client API, opts Options) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		form:      form,
		client:    client,
		exportDir: opts.ExportDir,
		debouncer: filter.NewDebouncer(opts.Debounce),
		onSearch:  opts.OnSearch,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *Session) Form() *filter.Form { return s.form }

func (s *Session) location() *time.Location {
	return s.form.Now().Location()
}

// State devolve uma cópia do estado atual.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]api.Record, len(s.rows))
	copy(rows, s.rows)
	return State{
		Rows:      rows,
		Count:     s.count,
		Loading:   s.loading,
		Exporting: s.exporting,
	}
}

// Refresh lista as notas com o filtro confirmado. Só a consulta mais recente
// altera o resultado; as anteriores devolvem ErrStale. Em erro de rede o
// resultado anterior é mantido.
func (s *Session) Refresh(ctx context.Context) error {
	params, err := filter.Serialize(s.form.Committed(), s.location())
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.loading = true
	s.mu.Unlock()

	start := time.Now()
	resp, err := s.client.List(ctx, params)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		if err != nil {
			slog.Error("erro ao listar NFSe", "err", err, "geracao", gen, "atual", s.gen)
		}
		metrics.ObserveStale(api.KindList)
		slog.Debug("resposta de listagem obsoleta descartada", "geracao", gen, "atual", s.gen, "duracao", time.Since(start))
		return ErrStale
	}
	s.loading = false

	if err != nil {
		slog.Error("erro ao listar NFSe", "err", err)
		return err
	}
	s.rows = resp.NFSes
	s.count = resp.Count
	slog.Info("listagem atualizada", "linhas", len(resp.NFSes), "total", resp.Count)
	return nil
}

// Apply confirma o rascunho e consulta. Rascunho inválido não gera consulta.
func (s *Session) Apply(ctx context.Context) error {
	if err := s.form.ApplyDraft(); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// Reset volta os filtros ao padrão e consulta.
func (s *Session) Reset(ctx context.Context) error {
	s.form.ResetToDefaults()
	return s.Refresh(ctx)
}

// Preset aplica o atalho de período e consulta.
func (s *Session) Preset(ctx context.Context, p filter.Preset) error {
	s.form.SetPreset(p)
	return s.Refresh(ctx)
}

// Search grava a busca rápida e agenda a consulta para depois da janela de silêncio.
func (s *Session) Search(value string) string {
	v := s.form.SetSearch(value)
	s.debouncer.Trigger(func() {
		err := s.Refresh(s.ctx)
		if errors.Is(err, ErrStale) || s.ctx.Err() != nil {
			return
		}
		if err != nil {
			slog.Warn("busca rápida sem resultado atualizado", "search", v, "err", err)
		}
		if s.onSearch != nil {
			s.onSearch(s.State(), err)
		}
	})
	return v
}

// ActivePreset informa qual atalho corresponde à data inicial confirmada.
func (s *Session) ActivePreset() (filter.Preset, bool) {
	return s.form.ActivePreset()
}

// ExportAll baixa a planilha de todas as notas do filtro confirmado e grava
// no diretório de exportação. Recusa quando a listagem atual está vazia.
func (s *Session) ExportAll(ctx context.Context) (string, error) {
	s.mu.Lock()
	empty := len(s.rows) == 0
	s.mu.Unlock()
	if empty {
		return "", ErrNothingToExport
	}

	committed := s.form.Committed()
	params, err := filter.SerializeExport(committed, s.location())
	if err != nil {
		return "", err
	}

	release, err := s.beginExport()
	if err != nil {
		return "", err
	}
	defer release()

	data, err := s.client.ExportAll(ctx, params)
	if err != nil {
		slog.Error("erro ao exportar NFSe", "kind", api.KindExportAll, "err", err)
		return "", err
	}

	start, _ := dates.Normalize(committed.Start, s.location())
	return s.save(data, export.FileNameAll(start, s.form.Now()))
}

// ExportOne baixa a planilha de uma única nota.
func (s *Session) ExportOne(ctx context.Context, chave string) (string, error) {
	chave = strings.TrimSpace(chave)
	if chave == "" {
		return "", ErrMissingKey
	}

	release, err := s.beginExport()
	if err != nil {
		return "", err
	}
	defer release()

	data, err := s.client.ExportOne(ctx, chave)
	if err != nil {
		slog.Error("erro ao exportar NFSe", "kind", api.KindExportOne, "chave", chave, "err", err)
		return "", err
	}
	return s.save(data, export.FileNameOne(chave, s.form.Now()))
}

// WriteListed grava as linhas da listagem atual como planilha.
func (s *Session) WriteListed(w io.Writer) error {
	st := s.State()
	if len(st.Rows) == 0 {
		return ErrNothingToExport
	}
	return export.WriteRecords(w, st.Rows, s.location())
}

// Close cancela a busca pendente.
func (s *Session) Close() {
	s.debouncer.Stop()
	s.cancel()
}

func (s *Session) beginExport() (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exporting {
		return nil, ErrExportInProgress
	}
	s.exporting = true
	return func() {
		s.mu.Lock()
		s.exporting = false
		s.mu.Unlock()
	}, nil
}

func (s *Session) save(data []byte, name string) (string, error) {
	summary, err := export.Inspect(data)
	if err != nil {
		return "", err
	}
	path, err := export.Save(s.exportDir, name, data)
	if err != nil {
		return "", fmt.Errorf("erro salvando exportação: %w", err)
	}
	slog.Info("planilha exportada", "path", path, "abas", len(summary.Sheets), "linhas", summary.DataRows())
	return path, nil
}
