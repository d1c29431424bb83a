package builder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/character-forge/internal/config"
	"github.com/shouni/character-forge/pkg/adapters"
	"github.com/shouni/character-forge/pkg/credential"
	"github.com/shouni/character-forge/pkg/export"
	"github.com/shouni/character-forge/pkg/forge"
	"github.com/shouni/character-forge/pkg/generator"
	"github.com/shouni/character-forge/pkg/history"
	"github.com/shouni/character-forge/pkg/reference"
	"github.com/shouni/character-forge/pkg/server"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"
)

// KeyMode はキー再選択の手段なのだ。
type KeyMode int

const (
	// KeyModeNone は再選択しないのだ。
	KeyModeNone KeyMode = iota
	// KeyModeTerminal は端末で入力させ、設定ファイルに保存するのだ。
	KeyModeTerminal
	// KeyModeReload は設定ファイルと環境変数を読み直すのだ。
	KeyModeReload
)

// BuildOptions は AppContext の組み立て方を指定するのだ。
type BuildOptions struct {
	KeyMode   KeyMode
	OutputDir string
	// NeedsObjectStorage は gs:// の参照画像を読むときに true にするのだ。
	NeedsObjectStorage bool
}

// NewAppContext は設定から依存関係をすべて組み立てるのだ。
func NewAppContext(ctx context.Context, cfg *config.Config, opts BuildOptions) (*AppContext, error) {
	keys, provider := BuildCredentials(cfg, opts.KeyMode)

	gen, err := BuildGenerator(cfg, keys, provider)
	if err != nil {
		return nil, err
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = cfg.OutputDir
	}

	var factory gcsfactory.Factory
	if opts.NeedsObjectStorage || isObjectPath(outputDir) {
		factory, err = gcsfactory.NewGCSClientFactory(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCS client factory: %w", err)
		}
	}

	httpClient := httpkit.New(cfg.HTTPTimeout)
	loader, err := BuildLoader(cfg, httpClient, factory)
	if err != nil {
		return nil, err
	}
	writer, err := BuildWriter(outputDir, factory)
	if err != nil {
		return nil, err
	}

	return &AppContext{
		Config:      cfg,
		Keys:        keys,
		Credentials: provider,
		Generator:   gen,
		Loader:      loader,
		Writer:      writer,
	}, nil
}

// BuildCredentials は KeyStore と、モードに応じた再選択の Provider を作るのだ。
func BuildCredentials(cfg *config.Config, mode KeyMode) (*credential.KeyStore, credential.Provider) {
	keys := credential.NewKeyStore(cfg.GeminiAPIKey)

	switch mode {
	case KeyModeTerminal:
		p := credential.NewTerminalProvider(keys)
		p.OnSelected = func(key string) error {
			return config.SaveAPIKey(cfg.ConfigPath, key)
		}
		return keys, p
	case KeyModeReload:
		return keys, credential.NewReloadProvider(keys, func() (string, error) {
			return config.ReloadAPIKey(cfg.ConfigPath)
		})
	}
	return keys, nil
}

// BuildGenerator は genai クライアントを包んだ GeminiGenerator を作るのだ。
func BuildGenerator(cfg *config.Config, keys credential.KeySource, provider credential.Provider) (generator.ImageGenerator, error) {
	model := adapters.NewGenAIModel(keys)

	var opts []generator.Option
	if provider != nil {
		opts = append(opts, generator.WithCredentialProvider(provider))
	}
	gen, err := generator.NewGeminiGenerator(model, cfg.ImageModel, opts...)
	if err != nil {
		return nil, fmt.Errorf("GeminiGeneratorの初期化に失敗したのだ: %w", err)
	}
	return gen, nil
}

// BuildLoader は URL キャッシュ付きの参照画像ローダーを作るのだ。
// factory があれば gs:// も読めるようにするのだ。
func BuildLoader(cfg *config.Config, httpClient httpkit.ClientInterface, factory gcsfactory.Factory) (*reference.Loader, error) {
	opts := []reference.LoaderOption{
		reference.WithCache(cache.New(config.DefaultImageCacheTTL, config.DefaultCacheCleanup), config.DefaultImageCacheTTL),
		reference.WithMaxBytes(config.DefaultMaxReferenceBytes),
	}
	if factory != nil {
		r, err := factory.NewInputReader()
		if err != nil {
			return nil, fmt.Errorf("InputReaderの取得に失敗したのだ: %w", err)
		}
		opts = append(opts, reference.WithObjectReader(r))
	}
	return reference.NewLoader(httpClient, opts...), nil
}

// BuildWriter は書き出し先に応じた Writer を返すのだ。gs:// なら GCS、それ以外はローカルなのだ。
func BuildWriter(outputDir string, factory gcsfactory.Factory) (export.Writer, error) {
	if !isObjectPath(outputDir) {
		return export.NewLocalWriter(), nil
	}
	if factory == nil {
		return nil, fmt.Errorf("GCS への書き出しにはクライアントが必要なのだ: %s", outputDir)
	}
	w, err := factory.NewOutputWriter()
	if err != nil {
		return nil, fmt.Errorf("OutputWriterの取得に失敗したのだ: %w", err)
	}
	return w, nil
}

// NewExporter は AppContext の Writer で dir に書き出す Exporter を作るのだ。
func (a *AppContext) NewExporter(dir string) *export.Exporter {
	if dir == "" {
		dir = a.Config.OutputDir
	}
	return export.NewExporter(a.Writer, dir)
}

// NewSession は設定の defaults を初期値にしたセッションを作るのだ。
func (a *AppContext) NewSession() *forge.Session {
	return forge.NewSession(a.Generator,
		forge.WithLoader(a.Loader),
		forge.WithInitialParams(a.Config.Defaults),
		forge.WithHistory(history.NewStore()),
	)
}

// NewServer は HTTP API サーバーを作るのだ。セッションは AppContext の依存を共有するのだ。
func (a *AppContext) NewServer(addr string) (*server.Server, error) {
	if addr == "" {
		addr = a.Config.Addr
	}
	srv, err := server.NewServer(server.Config{
		Addr:         addr,
		SessionTTL:   a.Config.SessionTTL,
		RateInterval: a.Config.RateInterval,
		Defaults:     a.Config.Defaults,
	}, a.NewSession)
	if err != nil {
		return nil, fmt.Errorf("サーバーの初期化に失敗したのだ: %w", err)
	}
	slog.Debug("サーバーを構築したのだ", "addr", addr, "model", a.Config.ImageModel)
	return srv, nil
}

func isObjectPath(p string) bool {
	return strings.HasPrefix(p, "gs://")
}
