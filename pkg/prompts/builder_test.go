package prompts

import (
	"reflect"
	"strings"
	"testing"

	"github.com/shouni/character-forge/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRefs() []domain.ReferenceImage {
	return []domain.ReferenceImage{
		{ID: "A", MimeType: "image/png", Data: []byte("png-bytes-A")},
		{ID: "B", MimeType: "image/jpeg", Data: []byte("jpeg-bytes-B")},
	}
}

func cliffParams() domain.GenerationParams {
	p := domain.DefaultParams()
	p.Prompt = "standing on a cliff"
	p.AspectRatio = domain.AspectWidescreen
	p.Resolution = domain.Resolution1K
	p.IsTransparentMode = false
	return p
}

func TestBuild_CliffScenario(t *testing.T) {
	payload := Build(sampleRefs(), cliffParams())

	require.Len(t, payload.Parts, 3)
	assert.Equal(t, "image/png", payload.Parts[0].InlineData.MIMEType)
	assert.Equal(t, []byte("png-bytes-A"), payload.Parts[0].InlineData.Data)
	assert.Equal(t, "image/jpeg", payload.Parts[1].InlineData.MIMEType)
	assert.Equal(t, []byte("jpeg-bytes-B"), payload.Parts[1].InlineData.Data)
	assert.Nil(t, payload.Parts[2].InlineData)

	text := payload.Text()
	assert.Contains(t, text, "high-quality")
	assert.Contains(t, text, "standing on a cliff")
	assert.Contains(t, text, "Background: Fully rendered")
	assert.NotContains(t, text, "3:2")
	assert.NotContains(t, text, "2:3")
	assert.Equal(t, 2, payload.ImageCount())
}

func TestBuild_IsPure(t *testing.T) {
	refs := sampleRefs()
	params := cliffParams()

	first := Build(refs, params)
	second := Build(refs, params)

	assert.True(t, reflect.DeepEqual(first, second), "同じ入力なら同じペイロードになるのだ")
	assert.Equal(t, BuildText(params), BuildText(params))
}

func TestBuild_ReferenceOrderAndSingleTextPart(t *testing.T) {
	var refs []domain.ReferenceImage
	for i, id := range []string{"r1", "r2", "r3", "r4", "r5"} {
		refs = append(refs, domain.ReferenceImage{ID: id, MimeType: "image/png", Data: []byte{byte(i)}})
	}

	payload := Build(refs, cliffParams())

	require.Len(t, payload.Parts, len(refs)+1)
	for i := range refs {
		require.NotNil(t, payload.Parts[i].InlineData, "index %d", i)
		assert.Equal(t, []byte{byte(i)}, payload.Parts[i].InlineData.Data)
		assert.Empty(t, payload.Parts[i].Text)
	}
	textParts := 0
	for _, p := range payload.Parts {
		if p.Text != "" {
			textParts++
		}
	}
	assert.Equal(t, 1, textParts)
}

func TestBuildText_QualityTier(t *testing.T) {
	for _, r := range domain.Resolutions {
		t.Run(string(r), func(t *testing.T) {
			p := cliffParams()
			p.Resolution = r
			text := BuildText(p)

			if r == domain.Resolution4K {
				assert.Contains(t, text, QualityUltra4)
				assert.NotContains(t, text, QualityHigh)
			} else {
				assert.Contains(t, text, QualityHigh)
				assert.NotContains(t, text, QualityUltra4)
			}
		})
	}
}

func TestBuildText_Background(t *testing.T) {
	t.Run("透過モードでは背景を描かない指示になるのだ", func(t *testing.T) {
		p := cliffParams()
		p.IsTransparentMode = true
		text := BuildText(p)

		assert.Contains(t, text, TransparentInstruction)
		assert.NotContains(t, text, "Fully rendered, detailed background")
	})

	t.Run("通常モードでは背景を描き込む指示になるのだ", func(t *testing.T) {
		p := cliffParams()
		text := BuildText(p)

		assert.Contains(t, text, BackgroundInstruction)
		assert.NotContains(t, text, "isolated on a solid white or transparent background")
	})
}

func TestBuildText_CompositionNote(t *testing.T) {
	tests := []struct {
		ratio    domain.AspectRatio
		wantNote string
	}{
		{domain.AspectStandard, StandardCompositionNote},
		{domain.AspectPortrait, PortraitCompositionNote},
		{domain.AspectSquare, ""},
		{domain.AspectWidescreen, ""},
		{domain.AspectTall, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.ratio), func(t *testing.T) {
			p := cliffParams()
			p.AspectRatio = tt.ratio
			text := BuildText(p)

			switch tt.wantNote {
			case StandardCompositionNote:
				assert.Contains(t, text, StandardCompositionNote)
				assert.NotContains(t, text, PortraitCompositionNote)
			case PortraitCompositionNote:
				assert.Contains(t, text, PortraitCompositionNote)
				assert.NotContains(t, text, StandardCompositionNote)
			default:
				assert.NotContains(t, text, "Composition:")
			}
		})
	}
}

func TestBuildText_EmbedsSceneLiterally(t *testing.T) {
	p := cliffParams()
	p.CameraAngle = "Dutch Angle / Canted"
	p.RenderMode = domain.RenderIllustration
	p.Lighting = domain.LightingDramatic
	p.Prompt = "holding a lantern {{.Danger}} 100%"

	text := BuildText(p)

	assert.Contains(t, text, "- Prompt: holding a lantern {{.Danger}} 100%")
	assert.Contains(t, text, "- Camera Angle: Dutch Angle / Canted")
	assert.Contains(t, text, "- Render Style: Digital Illustration")
	assert.Contains(t, text, "- Lighting: Dramatic High Contrast")
	assert.Contains(t, text, "facial features, body type, skin tone, hair style, and clothing details")
	assert.True(t, strings.HasPrefix(text, "Generate a high-quality image."))
}

func TestPayload_Contents(t *testing.T) {
	payload := Build(sampleRefs(), cliffParams())
	contents := payload.Contents()

	require.Len(t, contents, 1)
	assert.Equal(t, "user", contents[0].Role)
	assert.Len(t, contents[0].Parts, 3)
}
