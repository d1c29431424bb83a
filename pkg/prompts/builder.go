// Package prompts は参照画像と生成設定から Gemini へ送るパーツ列を組み立てます。
// ここにある関数はすべて純粋関数で、時刻や乱数、外部状態に依存しません。
package prompts

import (
	"fmt"
	"strings"

	"github.com/shouni/character-forge/pkg/domain"
	"google.golang.org/genai"
)

const (
	QualityHigh   = "high-quality"
	QualityUltra4 = "highly detailed 4K"

	identityInstruction = "The images provided above are the reference for the character. " +
		"Maintain the character's facial features, body type, skin tone, hair style, and clothing details " +
		"as consistently as possible across the new scene."

	TransparentInstruction = "IMPORTANT: Generate the character isolated on a solid white or transparent background. " +
		"No complex background scenery. Full body or frame as described."
	BackgroundInstruction = "Background: Fully rendered, detailed background matching the scene description."

	StandardCompositionNote = "Composition: Frame the shot with a 3:2 aspect ratio aesthetic within the 4:3 output."
	PortraitCompositionNote = "Composition: Frame the shot with a 2:3 aspect ratio aesthetic within the 3:4 output."
)

// Payload は1回の生成リクエストに載せるパーツ列です。
// 参照画像パーツがアップロード順に並び、最後にテキストパーツが1つだけ続きます。
type Payload struct {
	Parts []*genai.Part
}

// Build は参照画像と設定からペイロードを組み立てます。
func Build(refs []domain.ReferenceImage, params domain.GenerationParams) Payload {
	parts := make([]*genai.Part, 0, len(refs)+1)
	for _, ref := range refs {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: ref.MimeType,
				Data:     ref.Data,
			},
		})
	}
	parts = append(parts, genai.NewPartFromText(BuildText(params)))
	return Payload{Parts: parts}
}

// Text はペイロード末尾の指示文を返します。
func (p Payload) Text() string {
	if len(p.Parts) == 0 {
		return ""
	}
	return p.Parts[len(p.Parts)-1].Text
}

// ImageCount は画像パーツの数を返します。
func (p Payload) ImageCount() int {
	n := 0
	for _, part := range p.Parts {
		if part.InlineData != nil {
			n++
		}
	}
	return n
}

// Contents はパーツ列を user ロールの単一 Content に包みます。
func (p Payload) Contents() []*genai.Content {
	return []*genai.Content{genai.NewContentFromParts(p.Parts, genai.RoleUser)}
}

// BuildText は設定から指示文を合成します。
func BuildText(params domain.GenerationParams) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Generate a %s image.\n\n", qualityTier(params.Resolution))

	sb.WriteString("CHARACTER REFERENCE:\n")
	sb.WriteString(identityInstruction)
	sb.WriteString("\n\n")

	sb.WriteString("SCENE & COMPOSITION:\n")
	fmt.Fprintf(&sb, "- Prompt: %s\n", params.Prompt)
	fmt.Fprintf(&sb, "- Camera Angle: %s\n", params.CameraAngle)
	fmt.Fprintf(&sb, "- Render Style: %s\n", params.RenderMode)
	fmt.Fprintf(&sb, "- Lighting: %s\n", params.Lighting)

	if params.IsTransparentMode {
		sb.WriteString("- " + TransparentInstruction + "\n")
	} else {
		sb.WriteString("- " + BackgroundInstruction + "\n")
	}

	if note := compositionNote(params.AspectRatio); note != "" {
		sb.WriteString("- " + note + "\n")
	}

	return sb.String()
}

func qualityTier(r domain.Resolution) string {
	if r == domain.Resolution4K {
		return QualityUltra4
	}
	return QualityHigh
}

// compositionNote は近似比率で出力する場合の構図メモを返します。
func compositionNote(a domain.AspectRatio) string {
	switch a {
	case domain.AspectStandard:
		return StandardCompositionNote
	case domain.AspectPortrait:
		return PortraitCompositionNote
	}
	return ""
}
