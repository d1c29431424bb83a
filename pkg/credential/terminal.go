package credential

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrEmptyKey は入力されたキーが空だったことを表します。
var ErrEmptyKey = errors.New("API key cannot be empty")

// TerminalProvider は端末からエコーなしで API キーを入力させる Provider です。
// 入力されたキーは KeyStore に反映され、OnSelected が設定されていれば通知されます。
type TerminalProvider struct {
	store      *KeyStore
	in         *os.File
	out        io.Writer
	OnSelected func(key string) error
}

// NewTerminalProvider は標準入出力を使う TerminalProvider を生成します。
func NewTerminalProvider(store *KeyStore) *TerminalProvider {
	return &TerminalProvider{store: store, in: os.Stdin, out: os.Stderr}
}

// HasCredential はキーが保持されているかを返します。
func (p *TerminalProvider) HasCredential(ctx context.Context) bool {
	return p.store.HasKey()
}

// RequestSelection はキーの入力を促し、KeyStore を更新します。
func (p *TerminalProvider) RequestSelection(ctx context.Context) error {
	fmt.Fprint(p.out, "Enter your Gemini API key")
	if current := p.store.APIKey(); current != "" {
		fmt.Fprintf(p.out, " (current: %s)", Mask(current))
	}
	fmt.Fprint(p.out, ": ")

	key, err := p.readKey()
	if err != nil {
		return fmt.Errorf("failed to read key: %w", err)
	}
	if key == "" {
		return ErrEmptyKey
	}

	p.store.SetAPIKey(key)
	slog.InfoContext(ctx, "API key selected", "key", Mask(key))

	if p.OnSelected != nil {
		if err := p.OnSelected(key); err != nil {
			slog.WarnContext(ctx, "選択されたキーの保存に失敗しました", "error", err)
		}
	}
	return nil
}

func (p *TerminalProvider) readKey() (string, error) {
	fd := int(p.in.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	// パイプ入力などの非端末ではそのまま1行読む
	line, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
