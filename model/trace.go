package model

import (
	"encoding/json"
	"time"
)

// TraceArtifact is one saved request/response capture of a single execution.
type TraceArtifact struct {
	// Absolute path of the .trace.jsonc file
	Path string `json:"path"`
	// Test or group ID directory the artifact lives in
	Scope string `json:"scope"`
	// Timestamp part of the file name, used as the ordering key
	Timestamp string `json:"timestamp"`
	// Variant ID of a data-driven row (optional)
	Variant string `json:"variant,omitempty"`
	// Modification time of the file
	ModTime time.Time `json:"mod_time"`
}

// TracePair is one HTTP exchange stored in a trace artifact.
type TracePair struct {
	Request  json.RawMessage `json:"request"`
	Response json.RawMessage `json:"response"`
}
