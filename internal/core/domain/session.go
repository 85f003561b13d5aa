package domain

import (
	"time"
)

// Module is a feature area of the studio.
type Module string

const (
	ModuleImage Module = "image"
	ModuleVideo Module = "video"
	ModuleChat  Module = "chat"
)

// Valid reports whether the module is known.
func (m Module) Valid() bool {
	switch m {
	case ModuleImage, ModuleVideo, ModuleChat:
		return true
	}
	return false
}

// Mode is the generation mode.
type Mode string

const (
	ModeGenerate Mode = "generate"
	ModeRefine   Mode = "refine"
)

// Valid reports whether the mode is known.
func (m Mode) Valid() bool {
	return m == ModeGenerate || m == ModeRefine
}

// DefaultHistoryCapacity is the history bound used when none is configured.
const DefaultHistoryCapacity = 12

// SessionState is the aggregate root of a generation session.
type SessionState struct {
	ActiveModule        Module                `json:"activeModule"`
	Mode                Mode                  `json:"mode"`
	Prompt              string                `json:"prompt"`
	PerModuleParameters map[Module]Parameters `json:"perModuleParameters"`
	History             []Artifact            `json:"history"`
	UpdatedAt           time.Time             `json:"updatedAt,omitempty"`

	// InFlightCorrelationID is transient and never persisted.
	InFlightCorrelationID string `json:"-"`
}

// DefaultSessionState returns the state a fresh process starts with.
func DefaultSessionState() SessionState {
	return SessionState{
		ActiveModule:        ModuleImage,
		Mode:                ModeGenerate,
		PerModuleParameters: map[Module]Parameters{},
		History:             []Artifact{},
	}
}

// Clone returns a deep copy.
func (s SessionState) Clone() SessionState {
	params := make(map[Module]Parameters, len(s.PerModuleParameters))
	for k, v := range s.PerModuleParameters {
		params[k] = v.Clone()
	}
	s.PerModuleParameters = params

	history := make([]Artifact, len(s.History))
	for i, a := range s.History {
		a.Parameters = a.Parameters.Clone()
		history[i] = a
	}
	s.History = history
	return s
}
