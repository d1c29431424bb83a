package domain

import (
	"encoding/base64"
	"time"
)

// ReferenceImage はキャラクターの外見を固定するためにアップロードされた参照画像です。
// 作成後に変更されることはありません。
type ReferenceImage struct {
	ID       string `json:"id"`
	MimeType string `json:"mimeType"`
	Data     []byte `json:"-"` // デコード済みのバイナリ。送信時に SDK が base64 化する
}

// Base64 は Data を標準の base64 文字列として返します。
func (r ReferenceImage) Base64() string {
	return base64.StdEncoding.EncodeToString(r.Data)
}

// Size は Data のバイト数を返します。
func (r ReferenceImage) Size() int {
	return len(r.Data)
}

// GeneratedImage は1回の生成成功で作られる結果です。作成後は不変です。
type GeneratedImage struct {
	ID        string           `json:"id"`
	URL       string           `json:"url"` // data:<mime>;base64,<data>
	Prompt    string           `json:"prompt"`
	Timestamp time.Time        `json:"timestamp"`
	Params    GenerationParams `json:"params"` // 生成呼び出し時点のスナップショット
}
