package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/provider/registry"
)

// Version is the snapshot document version this build reads and writes.
const Version = 1

// Snapshot is the persisted studio state.
type Snapshot struct {
	SessionState    domain.SessionState     `json:"sessionState"`
	ProviderConfigs []domain.ProviderConfig `json:"providerConfigs"`
}

type document struct {
	Version         int                     `json:"version"`
	SessionState    *domain.SessionState    `json:"sessionState"`
	ProviderConfigs []domain.ProviderConfig `json:"providerConfigs"`
}

// Codec converts snapshots to and from the stored document. Sensitive
// credentials are sealed when a sealer is set and omitted otherwise.
type Codec struct {
	registry *registry.Registry
	sealer   *Sealer
	logger   *slog.Logger
}

// NewCodec creates a codec. sealer may be nil.
func NewCodec(reg *registry.Registry, sealer *Sealer, logger *slog.Logger) *Codec {
	if logger == nil {
		logger = slog.Default()
	}
	return &Codec{registry: reg, sealer: sealer, logger: logger}
}

func (c *Codec) descriptor(providerID string) domain.ProviderDescriptor {
	d, err := c.registry.Lookup(providerID)
	if err != nil {
		return domain.ProviderDescriptor{ID: providerID}
	}
	return d
}

// Encode renders snap as a version 1 document.
func (c *Codec) Encode(snap Snapshot) ([]byte, error) {
	st := snap.SessionState.Clone()
	st.InFlightCorrelationID = ""

	configs := make([]domain.ProviderConfig, 0, len(snap.ProviderConfigs))
	for _, cfg := range snap.ProviderConfigs {
		cfg = cfg.Clone()
		desc := c.descriptor(cfg.ProviderID)
		for k, v := range cfg.Credentials {
			if !desc.IsSensitive(k) || v == "" {
				continue
			}
			if c.sealer == nil {
				delete(cfg.Credentials, k)
				continue
			}
			sealed, err := c.sealer.Seal(v)
			if err != nil {
				return nil, fmt.Errorf("seal credential %s of config %s: %w", k, cfg.ID, err)
			}
			cfg.Credentials[k] = sealed
		}
		configs = append(configs, cfg)
	}

	return json.Marshal(document{Version: Version, SessionState: &st, ProviderConfigs: configs})
}

// Decode parses a stored document. Unknown fields are ignored, missing
// fields take their defaults and parameters for unknown modules are
// dropped. Sealed credentials that cannot be opened are dropped.
func (c *Codec) Decode(data []byte) (Snapshot, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	// Documents written before the version field existed are version 1.
	if doc.Version == 0 {
		doc.Version = Version
	}
	if doc.Version < 0 || doc.Version > Version {
		return Snapshot{}, fmt.Errorf("unsupported snapshot version %d", doc.Version)
	}

	st := domain.DefaultSessionState()
	if doc.SessionState != nil {
		st = *doc.SessionState
	}
	if !st.ActiveModule.Valid() {
		st.ActiveModule = domain.ModuleImage
	}
	if !st.Mode.Valid() {
		st.Mode = domain.ModeGenerate
	}
	if st.PerModuleParameters == nil {
		st.PerModuleParameters = map[domain.Module]domain.Parameters{}
	}
	for m := range st.PerModuleParameters {
		if !m.Valid() {
			delete(st.PerModuleParameters, m)
		}
	}
	if st.History == nil {
		st.History = []domain.Artifact{}
	}
	st.InFlightCorrelationID = ""

	configs := make([]domain.ProviderConfig, 0, len(doc.ProviderConfigs))
	for _, cfg := range doc.ProviderConfigs {
		for k, v := range cfg.Credentials {
			if !IsSealed(v) {
				continue
			}
			if c.sealer == nil {
				delete(cfg.Credentials, k)
				continue
			}
			plain, err := c.sealer.Open(v)
			if err != nil {
				c.logger.Warn("dropping credential that cannot be unsealed",
					slog.String("config_id", cfg.ID),
					slog.String("credential", k),
				)
				delete(cfg.Credentials, k)
				continue
			}
			cfg.Credentials[k] = plain
		}
		configs = append(configs, cfg)
	}

	return Snapshot{SessionState: st, ProviderConfigs: configs}, nil
}
