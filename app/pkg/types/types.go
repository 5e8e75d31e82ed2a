package types

import (
	"context"
	"strings"
)

// Terminal skill error codes.
const (
	ErrMeetingNotFound       = "MEETING_NOT_FOUND"
	ErrContextNotFound       = "CONTEXT_NOT_FOUND"
	ErrContextRetrievalError = "CONTEXT_RETRIEVAL_ERROR"
	ErrValidation            = "VALIDATION_ERROR"
	ErrConfig                = "CONFIG_ERROR"
)

// SkillError is a terminal failure: processing stops and the envelope
// carries ok=false.
type SkillError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *SkillError) Error() string {
	return e.Code + ": " + e.Message
}

func NewSkillError(code, message string) *SkillError {
	return &SkillError{Code: code, Message: message}
}

// PartialFailure records one collaborator branch that failed without
// aborting the request. The overall envelope stays ok=true.
type PartialFailure struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

type PartialFailures []PartialFailure

func (p *PartialFailures) Add(source, message string) {
	*p = append(*p, PartialFailure{Source: source, Message: message})
}

// Combined derives a human-readable error string from the structured
// list. Consumed only for display, never machine-parsed.
func (p PartialFailures) Combined() string {
	if len(p) == 0 {
		return ""
	}
	parts := make([]string, 0, len(p))
	for _, f := range p {
		msg := strings.TrimSpace(f.Message)
		if msg == "" {
			continue
		}
		if !strings.HasSuffix(msg, ".") {
			msg += "."
		}
		parts = append(parts, msg)
	}
	return strings.Join(parts, " ")
}

// Skill represents one user-facing capability.
type Skill interface {
	Execute(ctx context.Context, args map[string]interface{}) (interface{}, error)
	Manifest() SkillManifest
}

type SkillManifest struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}
