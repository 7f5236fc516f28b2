package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestBuildMetadataFillsDefaults(t *testing.T) {
	meta := BuildMetadata(Metadata{Source: SourceAPI})
	if meta.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be filled")
	}
	if meta.Version != MetadataVersion {
		t.Fatalf("expected version %q, got %q", MetadataVersion, meta.Version)
	}

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	meta = BuildMetadata(Metadata{Timestamp: fixed, Version: "0.9"})
	if !meta.Timestamp.Equal(fixed) {
		t.Fatalf("expected explicit timestamp to be kept, got %v", meta.Timestamp)
	}
	if meta.Version != "0.9" {
		t.Fatalf("expected explicit version to be kept, got %q", meta.Version)
	}
}

func TestMetadataJSONCarriesUnknownKeys(t *testing.T) {
	original := Metadata{
		Timestamp:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Source:        SourceAPI,
		Version:       MetadataVersion,
		CorrelationID: "corr-1",
		CausationID:   "cause-1",
		UserID:        "u-1",
		Priority:      "high",
		Extra: map[string]any{
			"traceId": "trace-abc",
			"tenant":  "acme",
		},
	}

	raw, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal returned error: %v", err)
	}

	// Unknown keys must sit flat beside the well-known ones.
	var flat map[string]any
	if err := json.Unmarshal(raw, &flat); err != nil {
		t.Fatalf("unmarshal into map returned error: %v", err)
	}
	if flat["traceId"] != "trace-abc" {
		t.Fatalf("expected traceId at the top level, got %v", flat["traceId"])
	}
	if flat["correlationId"] != "corr-1" {
		t.Fatalf("expected correlationId at the top level, got %v", flat["correlationId"])
	}

	var restored Metadata
	if err := json.Unmarshal(raw, &restored); err != nil {
		t.Fatalf("unmarshal returned error: %v", err)
	}
	if !restored.Timestamp.Equal(original.Timestamp) {
		t.Fatalf("timestamp changed across the round trip: %v", restored.Timestamp)
	}
	if restored.CorrelationID != original.CorrelationID || restored.CausationID != original.CausationID {
		t.Fatalf("identity fields changed across the round trip: %+v", restored)
	}
	if restored.UserID != original.UserID || restored.Priority != original.Priority {
		t.Fatalf("user fields changed across the round trip: %+v", restored)
	}
	if restored.Extra["traceId"] != "trace-abc" || restored.Extra["tenant"] != "acme" {
		t.Fatalf("unknown keys lost across the round trip: %v", restored.Extra)
	}
}

func TestMetadataJSONOmitsEmptyFields(t *testing.T) {
	raw, err := json.Marshal(Metadata{Timestamp: time.Now().UTC()})
	if err != nil {
		t.Fatalf("marshal returned error: %v", err)
	}

	var flat map[string]any
	if err := json.Unmarshal(raw, &flat); err != nil {
		t.Fatalf("unmarshal returned error: %v", err)
	}
	for _, key := range []string{"source", "version", "correlationId", "causationId", "userId", "priority"} {
		if _, present := flat[key]; present {
			t.Fatalf("expected empty %q to be omitted", key)
		}
	}
}

func TestMetadataUnmarshalRejectsNonStringTimestamp(t *testing.T) {
	var meta Metadata
	if err := json.Unmarshal([]byte(`{"timestamp": 1767225600}`), &meta); err == nil {
		t.Fatal("expected an error for a numeric timestamp")
	}
	if err := json.Unmarshal([]byte(`{"timestamp": "not a time"}`), &meta); err == nil {
		t.Fatal("expected an error for an unparseable timestamp")
	}
}

func TestMetadataCloneIsDeep(t *testing.T) {
	original := Metadata{Extra: map[string]any{"tenant": "acme"}}
	clone := original.Clone()
	clone.Extra["tenant"] = "other"

	if original.Extra["tenant"] != "acme" {
		t.Fatal("expected clone mutation not to reach the original")
	}
}

func TestNewEventDefaultsCorrelationToOwnID(t *testing.T) {
	event := NewEvent(OrderCreated, map[string]any{"orderId": "o-1"}, Metadata{})
	if event.Metadata.CorrelationID != event.ID.String() {
		t.Fatalf("expected correlation id %s, got %s", event.ID, event.Metadata.CorrelationID)
	}
	if !event.CreatedAt.Equal(event.Metadata.Timestamp) {
		t.Fatal("expected CreatedAt to match the metadata timestamp")
	}

	derived := NewEvent(InventoryUpdated, map[string]any{"productId": "p-1", "quantity": -1}, Metadata{
		CorrelationID: event.Metadata.CorrelationID,
		CausationID:   event.ID.String(),
	})
	if derived.Metadata.CorrelationID != event.Metadata.CorrelationID {
		t.Fatal("expected explicit correlation id to be kept")
	}
	if derived.Metadata.CausationID != event.ID.String() {
		t.Fatal("expected explicit causation id to be kept")
	}
}
