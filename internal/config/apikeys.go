package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadAPIKeys はYAMLファイルからAPIキーを読み込み、環境変数として設定する。
// ファイルが存在しない場合は警告ログを出して0件として扱う。
// 文字列以外の値と空白のみの値はスキップする。読み込んだ件数を返す。
func LoadAPIKeys(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("API keys file not found, skipping",
				slog.String("path", path),
			)
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read API keys file: %w", err)
	}

	var entries map[string]any
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("failed to parse API keys file: %w", err)
	}

	loaded := 0
	for key, value := range entries {
		s, ok := value.(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		if err := os.Setenv(key, s); err != nil {
			return loaded, fmt.Errorf("failed to set environment variable %s: %w", key, err)
		}
		loaded++
	}

	return loaded, nil
}
