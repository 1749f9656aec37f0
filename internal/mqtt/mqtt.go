// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"
)

// Topic is the MQTT topic for mirror signal events.
const Topic = "lab/mirror-sync/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "lab/mirror-sync/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a mirror signal event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Event represents a mirror signal event: loss or recovery of the
// timing-mark signal.
type Event struct {
	Timestamp time.Time
	Event     string // "SIGNAL_LOST" or "SIGNAL_RECOVERED"
	SweepUs   int64  // filtered sweep duration at the time of the event
	Locked    bool   // whether the interval classifier was locked
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Mirror MirrorPayload `json:"mirror"`
}

// MirrorPayload contains the signal event details.
type MirrorPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	SweepUs   int64  `json:"sweep_us"`
	Locked    bool   `json:"locked"`
}

// FormatPayload creates the JSON payload for a mirror signal event.
func FormatPayload(event Event) ([]byte, error) {
	payload := Payload{
		Mirror: MirrorPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			SweepUs:   event.SweepUs,
			Locked:    event.Locked,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
