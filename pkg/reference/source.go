package reference

import (
	"path/filepath"
	"strings"
)

// SourceKind は参照画像の入力元の種類です。
type SourceKind int

const (
	SourceFile SourceKind = iota
	SourceURL
	SourceBytes
	SourceDataURI
	SourceObject
)

func (k SourceKind) String() string {
	switch k {
	case SourceFile:
		return "file"
	case SourceURL:
		return "url"
	case SourceBytes:
		return "bytes"
	case SourceDataURI:
		return "data-uri"
	case SourceObject:
		return "object"
	}
	return "unknown"
}

// Source は1枚分の入力です。Location はファイルパス、URL、data URI のいずれか、
// SourceBytes のときは表示用のファイル名です。
type Source struct {
	Kind     SourceKind
	Location string
	Data     []byte
}

// FromFile はローカルファイルを入力元にします。
func FromFile(path string) Source {
	return Source{Kind: SourceFile, Location: path}
}

// FromURL は http(s) の URL を入力元にします。
func FromURL(rawURL string) Source {
	return Source{Kind: SourceURL, Location: rawURL}
}

// FromBytes はアップロード済みのバイナリを入力元にします。
func FromBytes(name string, data []byte) Source {
	return Source{Kind: SourceBytes, Location: name, Data: data}
}

// FromObject は gs:// などのオブジェクトストレージ上のパスを入力元にします。
func FromObject(uri string) Source {
	return Source{Kind: SourceObject, Location: uri}
}

// FromDataURI は data URI 文字列を入力元にします。
func FromDataURI(uri string) Source {
	return Source{Kind: SourceDataURI, Location: uri}
}

// ParseSource はコマンドライン引数の文字列から入力元の種類を判定します。
func ParseSource(arg string) Source {
	switch {
	case strings.HasPrefix(arg, "data:"):
		return FromDataURI(arg)
	case strings.HasPrefix(arg, "http://"), strings.HasPrefix(arg, "https://"):
		return FromURL(arg)
	case strings.HasPrefix(arg, "gs://"):
		return FromObject(arg)
	}
	return FromFile(filepath.Clean(arg))
}

// label はログ用の短い表記を返します。data URI はヘッダ部分だけにします。
func (s Source) label() string {
	if s.Kind == SourceDataURI {
		if i := strings.IndexByte(s.Location, ','); i >= 0 {
			return s.Location[:i]
		}
		if len(s.Location) > 32 {
			return s.Location[:32]
		}
	}
	return s.Location
}
