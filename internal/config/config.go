package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shouni/character-forge/pkg/domain"
	"github.com/shouni/go-utils/envutil"
	"gopkg.in/yaml.v3"
)

// デフォルト値の定義なのだ
const (
	DefaultImageModel        = "gemini-3-pro-image-preview"
	DefaultHTTPTimeout       = 30 * time.Second
	DefaultOutputDir         = "output"
	DefaultAddr              = "localhost:8080"
	DefaultSessionTTL        = 2 * time.Hour
	DefaultRateInterval      = 2 * time.Second
	DefaultImageCacheTTL     = 30 * time.Minute
	DefaultCacheCleanup      = 1 * time.Hour
	DefaultMaxReferenceBytes = 20 << 20
)

// Config はアプリケーション全体の設定を保持する構造体なのだ。
// 優先順位はフラグ > 環境変数 > 設定ファイル > 既定値なのだ。
// ただしキー再選択で保存した api_key は GEMINI_API_KEY より優先するのだ。
type Config struct {
	ConfigPath   string
	GeminiAPIKey string
	ImageModel   string
	OutputDir    string
	Addr         string
	SessionTTL   time.Duration
	RateInterval time.Duration
	HTTPTimeout  time.Duration
	Defaults     domain.GenerationParams
}

// FileConfig は YAML 設定ファイルの内容なのだ。
// APIKeySelected はキー再選択で保存された api_key なら true で、そのときは環境変数より優先するのだ。
type FileConfig struct {
	APIKey         string                  `yaml:"api_key,omitempty"`
	APIKeySelected bool                    `yaml:"api_key_selected,omitempty"`
	ImageModel     string                  `yaml:"image_model,omitempty"`
	OutputDir      string                  `yaml:"output_dir,omitempty"`
	Addr           string                  `yaml:"addr,omitempty"`
	Defaults       domain.GenerationParams `yaml:"defaults,omitempty"`
}

// DefaultConfigPath は ~/.character-forge/config.yaml を返すのだ。
// ホームディレクトリが取れなければカレントの config.yaml にするのだ。
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "config.yaml"
	}
	return filepath.Join(home, ".character-forge", "config.yaml")
}

// LoadFile は設定ファイルを読むのだ。ファイルがないのはエラーではないのだ。
func LoadFile(path string) (*FileConfig, error) {
	fc := &FileConfig{}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fc, nil
		}
		return nil, fmt.Errorf("設定ファイルの読み込みに失敗したのだ: %w", err)
	}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("設定ファイルの解析に失敗したのだ (%s): %w", path, err)
	}
	return fc, nil
}

// LoadConfig は設定ファイルと環境変数から設定を組み立てるのだ。
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	fc, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	sessionTTL, err := durationEnv("CHARACTER_FORGE_SESSION_TTL", DefaultSessionTTL)
	if err != nil {
		return nil, err
	}
	rateInterval, err := durationEnv("CHARACTER_FORGE_RATE_INTERVAL", DefaultRateInterval)
	if err != nil {
		return nil, err
	}
	httpTimeout, err := durationEnv("CHARACTER_FORGE_HTTP_TIMEOUT", DefaultHTTPTimeout)
	if err != nil {
		return nil, err
	}

	defaults := fc.Defaults.WithDefaults(domain.DefaultParams())
	if err := defaults.Validate(); err != nil {
		return nil, fmt.Errorf("設定ファイルの defaults が不正なのだ: %w", err)
	}

	cfg := &Config{
		ConfigPath:   path,
		GeminiAPIKey: apiKey(fc),
		ImageModel:   env("IMAGE_GEMINI_MODEL", orDefault(fc.ImageModel, DefaultImageModel)),
		OutputDir:    env("CHARACTER_FORGE_OUTPUT_DIR", orDefault(fc.OutputDir, DefaultOutputDir)),
		Addr:         env("CHARACTER_FORGE_ADDR", orDefault(fc.Addr, DefaultAddr)),
		SessionTTL:   sessionTTL,
		RateInterval: rateInterval,
		HTTPTimeout:  httpTimeout,
		Defaults:     defaults,
	}
	return cfg, nil
}

// ReloadAPIKey は設定ファイルの api_key を読み直すのだ。
// ファイルが空のときだけ環境変数を使うのだ。
func ReloadAPIKey(path string) (string, error) {
	fc, err := LoadFile(path)
	if err != nil {
		return "", err
	}
	if key := strings.TrimSpace(fc.APIKey); key != "" {
		return key, nil
	}
	return env("GEMINI_API_KEY", ""), nil
}

// SaveAPIKey は再選択したキーを api_key に書くのだ。ほかの項目はそのまま残すのだ。
// 保存したキーは次回から環境変数より優先されるのだ。
func SaveAPIKey(path, key string) error {
	fc, err := LoadFile(path)
	if err != nil {
		return err
	}
	fc.APIKey = strings.TrimSpace(key)
	fc.APIKeySelected = fc.APIKey != ""

	data, err := yaml.Marshal(fc)
	if err != nil {
		return fmt.Errorf("設定のシリアライズに失敗したのだ: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("設定ディレクトリの作成に失敗したのだ: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("設定ファイルの書き込みに失敗したのだ: %w", err)
	}
	return nil
}

func apiKey(fc *FileConfig) string {
	if key := strings.TrimSpace(fc.APIKey); fc.APIKeySelected && key != "" {
		return key
	}
	return env("GEMINI_API_KEY", fc.APIKey)
}

// env は空白だけの値も未設定として扱うのだ。
func env(key, def string) string {
	if v := strings.TrimSpace(envutil.GetEnv(key, def)); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := env(key, "")
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("環境変数 %s の値が不正なのだ: %w", key, err)
	}
	return d, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
