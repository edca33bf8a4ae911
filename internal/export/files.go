package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const fileExt = ".xlsx"

// FileNameOne é o nome da planilha de uma nota: <chave>-<unixMillis>.xlsx.
func FileNameOne(chave string, now time.Time) string {
	return fmt.Sprintf("%s-%d%s", sanitizeName(chave), now.UnixMilli(), fileExt)
}

// FileNameAll é o nome da planilha da exportação geral:
// <data inicial YYYY-MM-DD>-<unixMillis>.xlsx. Sem data inicial usa o dia de now.
func FileNameAll(start, now time.Time) string {
	day := start
	if day.IsZero() {
		day = now
	}
	return fmt.Sprintf("%s-%d%s", day.Format("2006-01-02"), now.UnixMilli(), fileExt)
}

// Save grava data em dir/name. Escreve num .part e renomeia no fim,
// então quem observa o diretório nunca vê arquivo pela metade.
func Save(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("erro criando diretório de exportação %s: %w", dir, err)
	}

	dst := filepath.Join(dir, name)
	tmp := dst + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("erro gravando planilha %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("erro movendo planilha para %s: %w", dst, err)
	}
	return dst, nil
}

// sanitizeName evita que a chave vire caminho.
func sanitizeName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(s)
	if s == "" {
		return "nfse"
	}
	return s
}
