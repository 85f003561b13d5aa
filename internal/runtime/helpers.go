package runtime

import (
	"log/slog"
	"maps"

	"github.com/tjfontaine/polyglot-image-studio/internal/config"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/providerconfig"
)

// seedConfigs upserts the provider configs listed in the config file.
// Invalid entries are logged and skipped.
func seedConfigs(store *providerconfig.Store, seeds []config.ProviderConfig, logger *slog.Logger) {
	for _, seed := range seeds {
		saved, err := store.Upsert(toProviderConfig(seed))
		if err != nil {
			logger.Warn("skipping provider config seed",
				slog.String("id", seed.ID),
				slog.String("provider", seed.Provider),
				slog.String("error", err.Error()))
			continue
		}
		logger.Info("seeded provider config",
			slog.String("id", saved.ID),
			slog.String("provider", saved.ProviderID),
			slog.Bool("active", saved.IsActive))
	}
}

func toProviderConfig(seed config.ProviderConfig) domain.ProviderConfig {
	return domain.ProviderConfig{
		ID:          seed.ID,
		ProviderID:  seed.Provider,
		Name:        seed.Name,
		Credentials: maps.Clone(seed.Credentials),
		Settings: domain.Parameters{
			Model:       seed.Model,
			AspectRatio: domain.AspectRatio(seed.AspectRatio),
			Quality:     domain.Quality(seed.Quality),
		},
		IsActive: seed.Active,
	}
}
