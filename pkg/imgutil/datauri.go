package imgutil

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// ErrNotDataURI は data:<mime>;base64,<payload> 形式に一致しない入力を表します。
var ErrNotDataURI = errors.New("not a base64 data URI")

var dataURIRegex = regexp.MustCompile(`^data:(.+);base64,(.+)$`)

// EncodeDataURI は MIME タイプとバイナリから data URI を組み立てます。
func EncodeDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// SplitDataURI は data URI を MIME タイプと base64 ペイロードに分解します。
// ペイロードのデコードは行いません。
func SplitDataURI(uri string) (mimeType, payload string, err error) {
	m := dataURIRegex.FindStringSubmatch(uri)
	if m == nil {
		return "", "", ErrNotDataURI
	}
	return m[1], m[2], nil
}

// ParseDataURI は data URI を MIME タイプとデコード済みバイナリに変換します。
func ParseDataURI(uri string) (string, []byte, error) {
	mimeType, payload, err := SplitDataURI(uri)
	if err != nil {
		return "", nil, err
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("base64のデコードに失敗しました: %w", err)
	}
	return mimeType, data, nil
}

// DetectMimeType はバイナリ先頭のシグネチャから MIME タイプを推定します。
// パラメータ部 (; charset=...) は取り除きます。
func DetectMimeType(data []byte) string {
	mimeType := http.DetectContentType(data)
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return mimeType
}

// IsImageMimeType は image/* かどうかを返します。
func IsImageMimeType(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}
