package generator

import (
	"errors"
	"strings"

	"github.com/shouni/character-forge/pkg/imgutil"
)

const (
	// DefaultModel は参照画像つき生成に対応した Gemini の画像モデルです。
	DefaultModel = "gemini-3-pro-image-preview"

	// AuthRefreshedMessage はキー再選択後に利用者へ手動での再実行を促す文言です。
	AuthRefreshedMessage = "Authentication refreshed. Please click Generate again."

	fallbackMimeType = "image/png"
)

var (
	// ErrNoImageReturned は呼び出しは成功したが画像パーツが含まれていなかったことを表します。
	ErrNoImageReturned = errors.New("no image generated")
	// ErrAuthRefreshed は認証エラーを検知してキー再選択を行ったことを表します。
	ErrAuthRefreshed = errors.New("authentication refreshed")
)

// authErrorMarkers は認証失敗とみなすエラーメッセージ中の文字列です。
var authErrorMarkers = []string{"401", "UNAUTHENTICATED", "Requested entity was not found"}

// AuthRefreshedError は再選択フローを起動したあとに返すエラーです。
// 元のエラーは Cause に保持しますが、メッセージは再実行の案内だけです。
type AuthRefreshedError struct {
	Cause error
}

func (e *AuthRefreshedError) Error() string {
	return AuthRefreshedMessage
}

func (e *AuthRefreshedError) Unwrap() []error {
	return []error{ErrAuthRefreshed, e.Cause}
}

// ErrorKind は呼び出し側に見せる失敗の分類です。
type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindNoImageReturned   ErrorKind = "NoImageReturned"
	KindAuthRefreshed     ErrorKind = "AuthRefreshed"
	KindTransportOrRemote ErrorKind = "TransportOrRemoteError"
)

// Kind はエラーを分類します。
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrAuthRefreshed):
		return KindAuthRefreshed
	case errors.Is(err, ErrNoImageReturned):
		return KindNoImageReturned
	}
	return KindTransportOrRemote
}

// IsAuthError はメッセージから認証エラーかどうかを判定します。
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range authErrorMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// ImageOutput は Core の内部解析結果
type ImageOutput struct {
	Data     []byte
	MimeType string
}

// DataURI は data:<mime>;base64,<data> 形式に再エンコードします。
func (o *ImageOutput) DataURI() string {
	mimeType := o.MimeType
	if strings.TrimSpace(mimeType) == "" {
		mimeType = fallbackMimeType
	}
	return imgutil.EncodeDataURI(mimeType, o.Data)
}
