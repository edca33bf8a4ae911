package filter

import (
	"sync"
	"time"
)

// DefaultDebounce é a janela de silêncio da busca rápida.
const DefaultDebounce = time.Second

// Debouncer adia a execução até que nenhuma nova chamada ocorra dentro da janela.
// A chamada pendente pode ser cancelada com Stop.
type Debouncer struct {
	window time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Debouncer{window: window}
}

// Trigger agenda fn, descartando qualquer execução ainda pendente.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, fn)
}

// Stop cancela a execução pendente. Devolve true se havia alguma.
func (d *Debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer == nil {
		return false
	}
	stopped := d.timer.Stop()
	d.timer = nil
	return stopped
}
