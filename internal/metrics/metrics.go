package metrics

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Status dos pedidos à API.
const (
	StatusSuccess      = "success"
	StatusNetworkError = "network_error"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nfse_requests_total",
			Help: "Quantidade de pedidos à API de NFSe, por tipo e resultado.",
		},
		[]string{"kind", "status"}, // kind: list|export_one|export_all
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nfse_request_duration_seconds",
			Help:    "Duração dos pedidos à API de NFSe em segundos.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind", "status"},
	)

	// respostas que chegaram depois de uma consulta mais nova; o pedido em si
	// já foi contado em requestsTotal
	staleResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nfse_stale_responses_total",
			Help: "Respostas da API descartadas por terem sido superadas por uma consulta mais nova.",
		},
		[]string{"kind"},
	)

	filterFiles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nfse_filter_files_total",
			Help: "Arquivos de filtro tratados no diretório de entrada, por resultado.",
		},
		[]string{"status"}, // accepted|queued|invalid|ignored|removed|exported|export_error
	)
)

// Init registra as métricas no registry global.
func Init() {
	prometheus.MustRegister(requestsTotal, requestDuration, staleResponses, filterFiles)
}

// ObserveRequest registra o resultado de um pedido à API.
func ObserveRequest(kind, status string, d time.Duration) {
	labels := prometheus.Labels{
		"kind":   kind,
		"status": status,
	}
	requestsTotal.With(labels).Inc()
	requestDuration.With(labels).Observe(d.Seconds())
}

// ObserveStale conta uma resposta descartada por ser obsoleta.
func ObserveStale(kind string) {
	staleResponses.WithLabelValues(kind).Inc()
}

// ObserveFilterFile conta um arquivo de filtro tratado pelo watcher ou worker.
func ObserveFilterFile(status string) {
	filterFiles.WithLabelValues(status).Inc()
}

// RequestCount devolve o total atual de pedidos com o tipo e status informados.
func RequestCount(kind, status string) float64 {
	return counterValue(requestsTotal.WithLabelValues(kind, status))
}

// StaleCount devolve o total atual de respostas obsoletas do tipo informado.
func StaleCount(kind string) float64 {
	return counterValue(staleResponses.WithLabelValues(kind))
}

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// StartHTTPServer sobe um /metrics na porta indicada (ex: ":9101").
// Endereço vazio desabilita o servidor.
func StartHTTPServer(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		slog.Info("iniciando servidor de métricas Prometheus", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("erro no servidor de métricas", "addr", addr, "err", err)
		}
	}()
}
