package filter

import (
	"sync"
	"time"

	"nfse-busca/internal/dates"
)

// Form guarda o rascunho (edição em andamento) e o filtro confirmado (usado nas consultas).
//
// Transições:
//   - ApplyDraft: rascunho -> confirmado, somente se o intervalo for válido
//   - ResetToDefaults: ambos voltam ao padrão, sem validação
//   - SetPreset: data inicial de ambos vai para a âncora do atalho, sem validação
type Form struct {
	clock func() time.Time

	mu        sync.Mutex
	draft     Criteria
	committed Criteria
}

// NewForm cria o formulário com os valores padrão. clock nil usa time.Now.
func NewForm(clock func() time.Time) *Form {
	if clock == nil {
		clock = time.Now
	}
	f := &Form{clock: clock}
	def := DefaultCriteria(clock())
	f.draft = def
	f.committed = def
	return f
}

// Now devolve o instante atual segundo o relógio do formulário.
func (f *Form) Now() time.Time {
	return f.clock()
}

// Draft devolve uma cópia do rascunho.
func (f *Form) Draft() Criteria {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// Committed devolve uma cópia do filtro confirmado.
func (f *Form) Committed() Criteria {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.committed
}

// SetField altera apenas o rascunho.
func (f *Form) SetField(field Field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft.set(field, value)
}

// SetSearch grava a busca rápida (somente dígitos) no rascunho e no confirmado.
func (f *Form) SetSearch(value string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := OnlyDigits(value)
	f.draft.Search = v
	f.committed.Search = v
	return v
}

// DraftErrors revalida o intervalo do rascunho.
func (f *Form) DraftErrors() ValidationErrors {
	f.mu.Lock()
	r := f.draft.DateRange
	f.mu.Unlock()
	return ValidateRange(r, f.clock())
}

// CanApply informa se o rascunho pode ser confirmado.
func (f *Form) CanApply() bool {
	return len(f.DraftErrors()) == 0
}

// ApplyDraft confirma o rascunho inteiro se o intervalo de datas for válido.
// Em caso de falha devolve ValidationErrors e não altera o confirmado.
func (f *Form) ApplyDraft() error {
	now := f.clock()
	f.mu.Lock()
	defer f.mu.Unlock()
	if errs := ValidateRange(f.draft.DateRange, now); len(errs) > 0 {
		return errs
	}
	f.committed = f.draft
	return nil
}

// DiscardDraft descarta a edição, voltando o rascunho ao confirmado.
func (f *Form) DiscardDraft() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = f.committed
}

// ResetToDefaults restaura o padrão em rascunho e confirmado.
func (f *Form) ResetToDefaults() {
	def := DefaultCriteria(f.clock())
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = def
	f.committed = def
}

// SetPreset aplica o atalho imediatamente; a data final não muda.
func (f *Form) SetPreset(p Preset) time.Time {
	anchor := p.Anchor(f.clock())
	v := dates.FormatLocalMillis(anchor)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Start = v
	f.committed.Start = v
	return anchor
}

// ActivePreset aplica o PresetMatcher sobre a data inicial confirmada.
func (f *Form) ActivePreset() (Preset, bool) {
	now := f.clock()
	start, err := dates.Normalize(f.Committed().Start, now.Location())
	if err != nil {
		return 0, false
	}
	return MatchPreset(start, now)
}
