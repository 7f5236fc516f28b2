package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// MetadataVersion is the current envelope version stamped on new events.
const MetadataVersion = "1.0"

// Event sources recognized by the subsystem. Source is a free-form origin
// label; these are the values the backend itself stamps.
const (
	SourceAPI          = "api"
	SourceReplay       = "replay"
	SourceMicroservice = "microservice"
	SourceReconciler   = "reconciler"
)

// Metadata is the envelope attached to every event. Timestamp and the
// identity fields are fixed at creation; Extra carries caller-supplied keys
// the schema does not know about, so new tracing fields survive a round trip
// through the store unchanged.
type Metadata struct {
	Timestamp     time.Time
	Source        string
	Version       string
	CorrelationID string
	CausationID   string
	UserID        string
	Priority      string
	Extra         map[string]any
}

// BuildMetadata normalizes a partial envelope: it fills the timestamp and
// version when absent and passes every caller-supplied field through.
func BuildMetadata(partial Metadata) Metadata {
	meta := partial
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now().UTC()
	}
	if meta.Version == "" {
		meta.Version = MetadataVersion
	}
	return meta
}

// Clone returns a deep copy so that stored metadata cannot be mutated
// through a shared Extra map.
func (m Metadata) Clone() Metadata {
	out := m
	if m.Extra != nil {
		out.Extra = make(map[string]any, len(m.Extra))
		for k, v := range m.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// MarshalJSON flattens Extra into the envelope object so unknown keys sit
// beside the well-known ones on the wire and in the store.
func (m Metadata) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(m.Extra)+7)
	for k, v := range m.Extra {
		flat[k] = v
	}

	flat["timestamp"] = m.Timestamp.Format(time.RFC3339Nano)
	if m.Source != "" {
		flat["source"] = m.Source
	}
	if m.Version != "" {
		flat["version"] = m.Version
	}
	if m.CorrelationID != "" {
		flat["correlationId"] = m.CorrelationID
	}
	if m.CausationID != "" {
		flat["causationId"] = m.CausationID
	}
	if m.UserID != "" {
		flat["userId"] = m.UserID
	}
	if m.Priority != "" {
		flat["priority"] = m.Priority
	}

	return json.Marshal(flat)
}

// UnmarshalJSON restores the well-known fields and collects everything else
// into Extra.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}

	*m = Metadata{}
	for key, value := range flat {
		switch key {
		case "timestamp":
			text, ok := value.(string)
			if !ok {
				return fmt.Errorf("metadata timestamp must be an RFC 3339 string, got %T", value)
			}
			ts, err := time.Parse(time.RFC3339Nano, text)
			if err != nil {
				return err
			}
			m.Timestamp = ts
		case "source":
			m.Source, _ = value.(string)
		case "version":
			m.Version, _ = value.(string)
		case "correlationId":
			m.CorrelationID, _ = value.(string)
		case "causationId":
			m.CausationID, _ = value.(string)
		case "userId":
			m.UserID, _ = value.(string)
		case "priority":
			m.Priority, _ = value.(string)
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]any)
			}
			m.Extra[key] = value
		}
	}

	return nil
}
