package model

// DiagnosticKind classifies a non-fatal condition found while reading or replaying events.
type DiagnosticKind string

const (
	DiagMissingEntity         DiagnosticKind = "missing_entity"
	DiagUnrecognizedOperation DiagnosticKind = "unrecognized_operation"
	DiagMissingDirectory      DiagnosticKind = "missing_directory"
)

// Diagnostic records a non-fatal condition with enough context to trace it.
type Diagnostic struct {
	Kind     DiagnosticKind `json:"kind" yaml:"kind"`
	Entity   string         `json:"entity,omitempty" yaml:"entity,omitempty"`
	EntityID string         `json:"entity_id,omitempty" yaml:"entity_id,omitempty"`
	Source   string         `json:"source,omitempty" yaml:"source,omitempty"`
	Message  string         `json:"message" yaml:"message"`
}
