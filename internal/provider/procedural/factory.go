package procedural

import (
	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
)

var displayNames = map[Pattern]string{
	PatternGeometric: "Geometric",
	PatternFractal:   "Fractal",
	PatternMosaic:    "Mosaic",
	PatternNoise:     "Noise pattern",
}

// Descriptor returns the catalog entry for a pattern.
func Descriptor(pattern Pattern) domain.ProviderDescriptor {
	return domain.ProviderDescriptor{
		ID:          string(pattern),
		DisplayName: displayNames[pattern],
		Description: "Local procedural renderer, works offline",
		Kind:        domain.ProviderKindProcedural,
		Region:      "local",
		CredentialSchema: []domain.CredentialField{
			{Key: "complexity", Label: "Complexity (1-16)", Kind: domain.FieldKindText},
			{Key: "colors", Label: "Palette size (1-16)", Kind: domain.FieldKindText},
		},
		DefaultParameters: domain.Parameters{
			AspectRatio: domain.AspectSquare,
			Quality:     domain.QualityStandard,
		},
		Capabilities: domain.Capabilities{SupportsBatch: true, MaxBatch: domain.MaxCount},
	}
}

// Factory returns a create function for pattern.
func Factory(pattern Pattern) func(cfg domain.ProviderConfig) (ports.ProviderAdapter, error) {
	return func(cfg domain.ProviderConfig) (ports.ProviderAdapter, error) {
		complexity, err := intSetting(cfg, "complexity")
		if err != nil {
			return nil, err
		}
		colors, err := intSetting(cfg, "colors")
		if err != nil {
			return nil, err
		}
		return New(pattern, complexity, colors)
	}
}

// ValidateConfig checks the optional numeric settings.
func ValidateConfig(cfg domain.ProviderConfig) error {
	if _, err := intSetting(cfg, "complexity"); err != nil {
		return err
	}
	_, err := intSetting(cfg, "colors")
	return err
}
