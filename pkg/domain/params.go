package domain

import (
	"fmt"
	"slices"
	"strings"
)

// AspectRatio は API に渡すアスペクト比トークンです。
// Standard と Portrait は 3:2 / 2:3 の近似として 4:3 / 3:4 を使います。
type AspectRatio string

const (
	AspectSquare     AspectRatio = "1:1"
	AspectStandard   AspectRatio = "4:3"
	AspectWidescreen AspectRatio = "16:9"
	AspectPortrait   AspectRatio = "3:4"
	AspectTall       AspectRatio = "9:16"
)

// AspectRatios は選択肢の表示順です。
var AspectRatios = []AspectRatio{AspectSquare, AspectStandard, AspectWidescreen, AspectPortrait, AspectTall}

// Label は UI に出す表示名を返します。
func (a AspectRatio) Label() string {
	switch a {
	case AspectSquare:
		return "1:1 (Square)"
	case AspectStandard:
		return "3:2 (Standard)"
	case AspectWidescreen:
		return "16:9 (Widescreen)"
	case AspectPortrait:
		return "2:3 (Portrait)"
	case AspectTall:
		return "9:16 (Social)"
	}
	return string(a)
}

// RenderMode は描画スタイルです。
type RenderMode string

const (
	RenderPhoto        RenderMode = "Photorealistic"
	RenderIllustration RenderMode = "Digital Illustration"
	RenderCinematic    RenderMode = "Cinematic Film Still"
)

var RenderModes = []RenderMode{RenderPhoto, RenderIllustration, RenderCinematic}

// LightingStyle はライティングの指定です。
type LightingStyle string

const (
	LightingNatural       LightingStyle = "Natural Soft Lighting"
	LightingStudio        LightingStyle = "Studio Lighting"
	LightingDramatic      LightingStyle = "Dramatic High Contrast"
	LightingCinematicWarm LightingStyle = "Warm Cinematic"
	LightingCinematicCool LightingStyle = "Cool Cinematic"
)

var LightingStyles = []LightingStyle{LightingNatural, LightingStudio, LightingDramatic, LightingCinematicWarm, LightingCinematicCool}

// Resolution は出力解像度のティアです。
type Resolution string

const (
	Resolution1K Resolution = "1K"
	Resolution2K Resolution = "2K"
	Resolution4K Resolution = "4K"
)

var Resolutions = []Resolution{Resolution1K, Resolution2K, Resolution4K}

// Label は解像度の目安を含む表示名を返します。
func (r Resolution) Label() string {
	switch r {
	case Resolution1K:
		return "1024x1024 (1K)"
	case Resolution2K:
		return "2048x2048 (2K)"
	case Resolution4K:
		return "4096x2160 (4K)"
	}
	return string(r)
}

// CameraAngles はプリセットのカメラアングルです。自由入力も受け付けます。
var CameraAngles = []string{
	"Eye Level",
	"Low Angle",
	"High Angle",
	"Bird's-Eye View / Overhead",
	"Worm's-Eye View",
	"Dutch Angle / Canted",
	"Close-Up",
	"Extreme Close-Up",
	"Medium Shot",
	"Cowboy Shot",
	"Long Shot / Wide Shot",
	"Extreme Long Shot",
	"Over-the-Shoulder",
	"POV (Point of View)",
	"Drone Orbit",
	"Tracking Shot",
	"Macro",
}

// GenerationParams は生成設定です。値型なので代入がそのままスナップショットになります。
type GenerationParams struct {
	Prompt            string        `json:"prompt" yaml:"prompt"`
	CameraAngle       string        `json:"cameraAngle" yaml:"camera_angle"`
	AspectRatio       AspectRatio   `json:"aspectRatio" yaml:"aspect_ratio"`
	RenderMode        RenderMode    `json:"renderMode" yaml:"render_mode"`
	Lighting          LightingStyle `json:"lighting" yaml:"lighting"`
	IsTransparentMode bool          `json:"isTransparentMode" yaml:"transparent"`
	Resolution        Resolution    `json:"resolution" yaml:"resolution"`
}

// DefaultParams は新しいセッションの初期設定を返します。
func DefaultParams() GenerationParams {
	return GenerationParams{
		Prompt:            "",
		CameraAngle:       "Eye Level",
		AspectRatio:       AspectWidescreen,
		RenderMode:        RenderCinematic,
		Lighting:          LightingCinematicWarm,
		IsTransparentMode: false,
		Resolution:        Resolution1K,
	}
}

// Ready は生成の前提条件（参照画像が1枚以上、プロンプトが空白でない）を満たすか返します。
func (p GenerationParams) Ready(referenceCount int) bool {
	return referenceCount > 0 && strings.TrimSpace(p.Prompt) != ""
}

// Validate は列挙値が既知のものかを検証します。プロンプトの空チェックは行いません。
func (p GenerationParams) Validate() error {
	if strings.TrimSpace(p.CameraAngle) == "" {
		return fmt.Errorf("camera angle is required")
	}
	if !slices.Contains(AspectRatios, p.AspectRatio) {
		return fmt.Errorf("unsupported aspect ratio: %q", p.AspectRatio)
	}
	if !slices.Contains(RenderModes, p.RenderMode) {
		return fmt.Errorf("unsupported render mode: %q", p.RenderMode)
	}
	if !slices.Contains(LightingStyles, p.Lighting) {
		return fmt.Errorf("unsupported lighting: %q", p.Lighting)
	}
	if !slices.Contains(Resolutions, p.Resolution) {
		return fmt.Errorf("unsupported resolution: %q", p.Resolution)
	}
	return nil
}

// WithDefaults は空のフィールドを def の値で埋めたコピーを返します。
func (p GenerationParams) WithDefaults(def GenerationParams) GenerationParams {
	if p.CameraAngle == "" {
		p.CameraAngle = def.CameraAngle
	}
	if p.AspectRatio == "" {
		p.AspectRatio = def.AspectRatio
	}
	if p.RenderMode == "" {
		p.RenderMode = def.RenderMode
	}
	if p.Lighting == "" {
		p.Lighting = def.Lighting
	}
	if p.Resolution == "" {
		p.Resolution = def.Resolution
	}
	return p
}
