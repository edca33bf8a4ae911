package logx

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var Logger *slog.Logger

// Init configura o logger padrão: JSON no stdout, nível vindo de LOG_LEVEL.
func Init(level string) {
	InitWriter(os.Stdout, level)
}

// InitWriter é o Init com destino escolhido. A CLI usa stderr para não
// misturar log com a saída dos comandos.
func InitWriter(w io.Writer, level string) {
	Logger = New(w, level)
	slog.SetDefault(Logger)
}

// New monta um logger JSON com o nível informado (debug, info, warn, error).
func New(w io.Writer, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler)
}

// ParseLevel converte o texto de LOG_LEVEL; valores desconhecidos viram info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
