package builder

import (
	"github.com/shouni/character-forge/internal/config"
	"github.com/shouni/character-forge/pkg/credential"
	"github.com/shouni/character-forge/pkg/export"
	"github.com/shouni/character-forge/pkg/generator"
	"github.com/shouni/character-forge/pkg/reference"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持するのだ。
// CLI でもサーバーでも同じものを組み立てて使い回すのだ。
type AppContext struct {
	Config      *config.Config           // 設定ファイルと環境変数から読み込んだ設定
	Keys        *credential.KeyStore     // 実行中に差し替わる API キー
	Credentials credential.Provider      // キー再選択の手段。なければ nil
	Generator   generator.ImageGenerator // Gemini 画像生成
	Loader      *reference.Loader        // 参照画像のデコード
	Writer      export.Writer            // 書き出し先
}
