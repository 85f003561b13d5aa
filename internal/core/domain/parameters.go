package domain

import (
	"fmt"
	"slices"
)

// AspectRatio is the requested output shape.
type AspectRatio string

const (
	AspectSquare    AspectRatio = "1:1"
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
	AspectStandard  AspectRatio = "4:3"
	AspectTall      AspectRatio = "3:4"
)

var aspectRatios = []AspectRatio{AspectSquare, AspectLandscape, AspectPortrait, AspectStandard, AspectTall}

// Valid reports whether the ratio is one the studio knows.
func (a AspectRatio) Valid() bool {
	return slices.Contains(aspectRatios, a)
}

// Dimensions returns a pixel size for the ratio with the long side set to base.
func (a AspectRatio) Dimensions(base int) (width, height int) {
	switch a {
	case AspectLandscape:
		return base, base * 9 / 16
	case AspectPortrait:
		return base * 9 / 16, base
	case AspectStandard:
		return base, base * 3 / 4
	case AspectTall:
		return base * 3 / 4, base
	default:
		return base, base
	}
}

// Quality is the requested quality mode.
type Quality string

const (
	QualityStandard Quality = "standard"
	QualityHigh     Quality = "high"
	QualityUltra    Quality = "ultra"
)

// Valid reports whether the quality mode is known.
func (q Quality) Valid() bool {
	switch q {
	case QualityStandard, QualityHigh, QualityUltra:
		return true
	}
	return false
}

// Parameters are the generation parameters shared by requests, provider
// defaults, config settings and per-module session state.
type Parameters struct {
	AspectRatio    AspectRatio `json:"aspectRatio,omitempty"`
	Quality        Quality     `json:"quality,omitempty"`
	Model          string      `json:"model,omitempty"`
	Style          string      `json:"style,omitempty"`
	NegativePrompt string      `json:"negativePrompt,omitempty"`
	Seed           *int64      `json:"seed,omitempty"`
	Steps          int         `json:"steps,omitempty"`
	CfgScale       float64     `json:"cfgScale,omitempty"`
}

// Clone returns a deep copy.
func (p Parameters) Clone() Parameters {
	if p.Seed != nil {
		s := *p.Seed
		p.Seed = &s
	}
	return p
}

// Merge returns p with every zero field filled from base.
func (p Parameters) Merge(base Parameters) Parameters {
	out := base.Clone()
	if p.AspectRatio != "" {
		out.AspectRatio = p.AspectRatio
	}
	if p.Quality != "" {
		out.Quality = p.Quality
	}
	if p.Model != "" {
		out.Model = p.Model
	}
	if p.Style != "" {
		out.Style = p.Style
	}
	if p.NegativePrompt != "" {
		out.NegativePrompt = p.NegativePrompt
	}
	if p.Seed != nil {
		s := *p.Seed
		out.Seed = &s
	}
	if p.Steps != 0 {
		out.Steps = p.Steps
	}
	if p.CfgScale != 0 {
		out.CfgScale = p.CfgScale
	}
	return out
}

// Validate checks enumerated fields.
func (p Parameters) Validate() error {
	if p.AspectRatio != "" && !p.AspectRatio.Valid() {
		return ErrConfiguration(fmt.Sprintf("unsupported aspect ratio %q", p.AspectRatio)).
			WithCode(ErrorCodeInvalidParameter).
			WithParam("aspectRatio")
	}
	if p.Quality != "" && !p.Quality.Valid() {
		return ErrConfiguration(fmt.Sprintf("unsupported quality %q", p.Quality)).
			WithCode(ErrorCodeInvalidParameter).
			WithParam("quality")
	}
	if p.Steps < 0 {
		return ErrConfiguration("steps must not be negative").
			WithCode(ErrorCodeInvalidParameter).
			WithParam("steps")
	}
	return nil
}

// Int64 returns a pointer to v, for optional seeds.
func Int64(v int64) *int64 {
	return &v
}
