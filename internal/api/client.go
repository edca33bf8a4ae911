package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"nfse-busca/internal/filter"
	"nfse-busca/internal/metrics"
)

// Tipos de pedido, usados nas métricas e nos logs.
const (
	KindList      = "list"
	KindExportOne = "export_one"
	KindExportAll = "export_all"
)

const (
	listPath   = "/api/nfse"
	exportPath = "/api/nfse-export"
)

// ErrNetwork identifica qualquer falha de comunicação com a API.
var ErrNetwork = errors.New("falha de comunicação com a API de NFSe")

// NetworkError descreve uma falha de transporte ou uma resposta fora de 2xx.
type NetworkError struct {
	Kind      string
	Status    int
	Message   string
	RequestID string
	Err       error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("erro de rede (%s, request_id=%s): %v", e.Kind, e.RequestID, e.Err)
	case e.Message != "":
		return fmt.Sprintf("erro da API (%s, request_id=%s): status %d: %s", e.Kind, e.RequestID, e.Status, e.Message)
	}
	return fmt.Sprintf("erro da API (%s, request_id=%s): status %d", e.Kind, e.RequestID, e.Status)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// Client fala com a API de NFSe. Nenhum pedido é repetido automaticamente.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: timeout,
		},
	}
}

// List consulta as notas que atendem aos parâmetros.
func (c *Client) List(ctx context.Context, params filter.Params) (ListResponse, error) {
	var out ListResponse
	data, err := c.get(ctx, KindList, listPath, params.Encode())
	if err != nil {
		return ListResponse{}, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return ListResponse{}, fmt.Errorf("erro decodificando listagem: %w", err)
	}
	return out, nil
}

// ExportOne baixa a planilha de uma nota pela chave de acesso.
func (c *Client) ExportOne(ctx context.Context, chave string) ([]byte, error) {
	q := url.Values{}
	q.Set("unique", chave)
	return c.get(ctx, KindExportOne, exportPath, q.Encode())
}

// ExportAll baixa a planilha de todas as notas que atendem aos parâmetros.
func (c *Client) ExportAll(ctx context.Context, params filter.Params) ([]byte, error) {
	return c.get(ctx, KindExportAll, exportPath, params.Encode())
}

func (c *Client) get(ctx context.Context, kind, path, rawQuery string) ([]byte, error) {
	requestID := NewRequestID()
	start := time.Now()

	data, err := c.do(ctx, kind, path, rawQuery, requestID)
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusNetworkError
	}
	metrics.ObserveRequest(kind, status, time.Since(start))

	if err != nil {
		return nil, err
	}
	slog.Debug("resposta da API recebida", "kind", kind, "request_id", requestID, "bytes", len(data))
	return data, nil
}

func (c *Client) do(ctx context.Context, kind, path, rawQuery, requestID string) ([]byte, error) {
	fullURL := c.BaseURL + path
	if rawQuery != "" {
		fullURL += "?" + rawQuery
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("erro montando requisição %s: %w", kind, err)
	}
	req.Header.Set("X-Request-Id", requestID)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &NetworkError{Kind: kind, RequestID: requestID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
		return nil, &NetworkError{
			Kind:      kind,
			Status:    resp.StatusCode,
			Message:   strings.TrimSpace(string(msg)),
			RequestID: requestID,
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Kind: kind, Status: resp.StatusCode, RequestID: requestID, Err: err}
	}
	return data, nil
}

func NewRequestID() string {
	return uuid.NewString()
}
