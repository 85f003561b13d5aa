package domain

import (
	"fmt"
	"slices"
	"time"
)

// ProviderKind groups providers by where generation actually happens.
type ProviderKind string

const (
	ProviderKindCloud      ProviderKind = "cloud"
	ProviderKindFree       ProviderKind = "free"
	ProviderKindLocal      ProviderKind = "local"
	ProviderKindProcedural ProviderKind = "procedural"
)

// FieldKind is the input hint for a credential field.
type FieldKind string

const (
	FieldKindText     FieldKind = "text"
	FieldKindPassword FieldKind = "password"
	FieldKindURL      FieldKind = "url"
)

// CredentialField declares one credential or connection setting of a provider.
type CredentialField struct {
	Key       string    `json:"key"`
	Label     string    `json:"label"`
	Kind      FieldKind `json:"kind"`
	Required  bool      `json:"required"`
	Sensitive bool      `json:"sensitive"`
}

// Capabilities declares what a provider can do natively.
type Capabilities struct {
	// SupportsBatch means one call can return several artifacts.
	SupportsBatch bool `json:"supports_batch"`

	// MaxBatch caps the native batch size; 0 means no provider cap.
	MaxBatch int `json:"max_batch,omitempty"`

	// RequiresProxy means the provider is unreachable without a proxy endpoint.
	RequiresProxy bool `json:"requires_proxy"`
}

// ProviderDescriptor identifies a generation back end. Descriptors are
// defined at build time and never mutated at runtime.
type ProviderDescriptor struct {
	ID                string            `json:"id"`
	DisplayName       string            `json:"display_name"`
	Description       string            `json:"description,omitempty"`
	Kind              ProviderKind      `json:"kind"`
	Region            string            `json:"region,omitempty"`
	CredentialSchema  []CredentialField `json:"credential_schema"`
	DefaultParameters Parameters        `json:"default_parameters"`
	DefaultModels     []string          `json:"default_models,omitempty"`
	Capabilities      Capabilities      `json:"capabilities"`
}

// Clone returns a deep copy so callers cannot mutate registry state.
func (d ProviderDescriptor) Clone() ProviderDescriptor {
	d.CredentialSchema = slices.Clone(d.CredentialSchema)
	d.DefaultModels = slices.Clone(d.DefaultModels)
	d.DefaultParameters = d.DefaultParameters.Clone()
	return d
}

// Field returns the credential field with the given key.
func (d ProviderDescriptor) Field(key string) (CredentialField, bool) {
	for _, f := range d.CredentialSchema {
		if f.Key == key {
			return f, true
		}
	}
	return CredentialField{}, false
}

// IsSensitive reports whether a credential key is declared sensitive.
// Undeclared keys are treated as sensitive.
func (d ProviderDescriptor) IsSensitive(key string) bool {
	f, ok := d.Field(key)
	return !ok || f.Sensitive
}

// ProviderConfig is a user-bound instance of a provider: credentials plus settings.
type ProviderConfig struct {
	ID          string            `json:"id"`
	ProviderID  string            `json:"providerId"`
	Name        string            `json:"name,omitempty"`
	Credentials map[string]string `json:"credentials,omitempty"`
	Settings    Parameters        `json:"settings"`
	IsActive    bool              `json:"isActive"`
	CreatedAt   time.Time         `json:"createdAt"`
	LastUsedAt  *time.Time        `json:"lastUsedAt,omitempty"`
}

// Clone returns a deep copy of the config.
func (c ProviderConfig) Clone() ProviderConfig {
	if c.Credentials != nil {
		creds := make(map[string]string, len(c.Credentials))
		for k, v := range c.Credentials {
			creds[k] = v
		}
		c.Credentials = creds
	}
	if c.LastUsedAt != nil {
		t := *c.LastUsedAt
		c.LastUsedAt = &t
	}
	c.Settings = c.Settings.Clone()
	return c
}

// Redacted returns a copy safe for logs and API responses: values of
// sensitive credentials are masked.
func (c ProviderConfig) Redacted(desc ProviderDescriptor) ProviderConfig {
	out := c.Clone()
	for k, v := range out.Credentials {
		if v != "" && desc.IsSensitive(k) {
			out.Credentials[k] = mask(v)
		}
	}
	return out
}

func mask(v string) string {
	if len(v) <= 8 {
		return "********"
	}
	return fmt.Sprintf("%s…%s", v[:3], v[len(v)-2:])
}

// ValidationResult lists the required credential keys a config is missing,
// in schema order, so callers can render precise feedback.
type ValidationResult struct {
	ProviderID string   `json:"providerId"`
	Missing    []string `json:"missing"`
}

// OK reports whether the config can be used for generation.
func (v ValidationResult) OK() bool {
	return len(v.Missing) == 0
}

// Err converts a failed validation into a configuration error.
func (v ValidationResult) Err() error {
	if v.OK() {
		return nil
	}
	return ErrConfiguration(fmt.Sprintf("provider %s is missing required credentials: %v", v.ProviderID, v.Missing)).
		WithCode(ErrorCodeMissingCredentials).
		WithParam(v.Missing[0])
}
