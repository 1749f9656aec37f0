package status

import (
	"encoding/json"
	"time"
)

// TelemetryJSON is the top-level JSON envelope for full telemetry, the
// response to `get *` and the HTTP JSON endpoint.
type TelemetryJSON struct {
	Telemetry TelemetryInner `json:"telemetry"`
}

// TelemetryInner contains the telemetry details.
type TelemetryInner struct {
	Event         string        `json:"event,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	Timing        TimingJSON    `json:"timing"`
	Direction     *DirectionJSON `json:"direction,omitempty"`
	Armed         bool          `json:"armed"`
	Recovery      string        `json:"recovery"`
	Dots          DotsJSON      `json:"dots"`
	TTL           TTLJSON       `json:"ttl"`
	Counters      CountersJSON  `json:"counters"`
	MQTT          MQTTStatus    `json:"mqtt"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	Config        ConfigJSON    `json:"config"`
}

// TimingJSON is the JSON representation of the classifier and sweep filter.
type TimingJSON struct {
	ShortUs     int64  `json:"short_us"`
	LongUs      int64  `json:"long_us"`
	GapUs       int64  `json:"gap_us"`
	Locked      bool   `json:"locked"`
	LastCluster string `json:"last_cluster"`
	LastLongUs  int64  `json:"last_long_us"`
	SweepUs     int64  `json:"sweep_us"`
}

// DirectionJSON is the JSON representation of the last direction sample.
type DirectionJSON struct {
	V0      int32 `json:"v0"`
	V1      int32 `json:"v1"`
	Slope   int32 `json:"slope"`
	Forward bool  `json:"forward"`
}

// DotsJSON is the JSON representation of the pattern buffer state.
type DotsJSON struct {
	ActiveIndex   int   `json:"active_index"`
	ActiveCount   int   `json:"active_count"`
	UploadedCount int64 `json:"uploaded_count"`
	AcceptedCount int64 `json:"accepted_count"`
	TestPattern   bool  `json:"test_pattern"`
	TestCount     int64 `json:"test_count"`
}

// TTLJSON is the JSON representation of the pulse output settings.
type TTLJSON struct {
	PixelWidthUs         int64 `json:"pixel_width_us"`
	ExtraOffsetUs        int64 `json:"extra_offset_us"`
	TTLFreqHz            int64 `json:"ttl_freq_hz"`
	MinSpacingUs         int64 `json:"min_spacing_us"`
	ForwardSlopePositive bool  `json:"forward_slope_positive"`
	RecoveryTimeoutUs    int64 `json:"recovery_timeout_us"`
}

// CountersJSON is the JSON representation of the diagnostic counters.
type CountersJSON struct {
	Edges           uint64 `json:"edges"`
	Overruns        uint64 `json:"overruns"`
	Builds          uint64 `json:"builds"`
	TruncatedBuilds uint64 `json:"truncated_builds"`
	DroppedWindows  uint64 `json:"dropped_windows"`
	RejectedPoints  uint64 `json:"rejected_points"`
	DirectionErrors uint64 `json:"direction_errors"`
	Losses          uint64 `json:"losses"`
	Swaps           uint64 `json:"swaps"`
	DroppedNotices  uint64 `json:"dropped_notices"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ConfigJSON is the JSON representation of static daemon config.
type ConfigJSON struct {
	HTTPAddr   string `json:"http_addr"`
	CmdAddr    string `json:"cmd_addr"`
	Chip       string `json:"chip"`
	PinMark    int    `json:"pin_mark"`
	PinR       int    `json:"pin_r"`
	PinG       int    `json:"pin_g"`
	PinB       int    `json:"pin_b"`
	ADCDevice  int    `json:"adc_device"`
	ADCChannel int    `json:"adc_channel"`
}

// StatusJSON is the compact envelope for the `status` command.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the compact status details.
type StatusInner struct {
	Armed         bool   `json:"armed"`
	Locked        bool   `json:"locked"`
	Recovery      string `json:"recovery"`
	SweepUs       int64  `json:"sweep_us"`
	ActiveCount   int    `json:"active_count"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func recoveryString(lost bool) string {
	if lost {
		return "SIGNAL_LOST"
	}
	return "ARMED_NORMAL"
}

func buildInner(snap Snapshot) TelemetryInner {
	inner := TelemetryInner{
		Timing: TimingJSON{
			ShortUs:     snap.RT.Timing.ShortUs,
			LongUs:      snap.RT.Timing.LongUs,
			GapUs:       snap.RT.Timing.GapUs,
			Locked:      snap.RT.Timing.Locked,
			LastCluster: snap.RT.Timing.LastCluster.String(),
			LastLongUs:  snap.RT.Timing.LastLongUs,
			SweepUs:     snap.RT.SweepUs,
		},
		Armed:    snap.Control.Armed,
		Recovery: recoveryString(snap.RT.SignalLost),
		Dots: DotsJSON{
			ActiveIndex:   snap.RT.ActiveIndex,
			ActiveCount:   snap.RT.ActiveCount,
			UploadedCount: snap.Control.UploadedCount,
			AcceptedCount: snap.Control.AcceptedCount,
			TestPattern:   snap.Control.TestPattern,
			TestCount:     snap.Control.TestCount,
		},
		TTL: TTLJSON{
			PixelWidthUs:         snap.Control.PulseWidthUs,
			ExtraOffsetUs:        snap.Control.ExtraOffsetUs,
			TTLFreqHz:            snap.Control.TTLFreqHz,
			MinSpacingUs:         snap.Control.MinSpacingUs,
			ForwardSlopePositive: snap.Control.ForwardSlopePositive,
			RecoveryTimeoutUs:    snap.Control.RecoveryTimeoutUs,
		},
		Counters: CountersJSON{
			Edges:           snap.RT.Counters.Edges,
			Overruns:        snap.RT.Counters.Overruns,
			Builds:          snap.RT.Counters.Builds,
			TruncatedBuilds: snap.RT.Counters.TruncatedBuilds,
			DroppedWindows:  snap.RT.Counters.DroppedWindows,
			RejectedPoints:  snap.RT.Counters.RejectedPoints,
			DirectionErrors: snap.RT.Counters.DirectionErrors,
			Losses:          snap.RT.Counters.Losses,
			Swaps:           snap.RT.Counters.Swaps,
			DroppedNotices:  snap.RT.Counters.DroppedNotices,
		},
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Config: ConfigJSON{
			HTTPAddr:   snap.Config.HTTPAddr,
			CmdAddr:    snap.Config.CmdAddr,
			Chip:       snap.Config.Chip,
			PinMark:    snap.Config.PinMark,
			PinR:       snap.Config.PinR,
			PinG:       snap.Config.PinG,
			PinB:       snap.Config.PinB,
			ADCDevice:  snap.Config.ADCDevice,
			ADCChannel: snap.Config.ADCChannel,
		},
	}
	if snap.RT.HaveDirection {
		inner.Direction = &DirectionJSON{
			V0:      snap.RT.Direction.V0,
			V1:      snap.RT.Direction.V1,
			Slope:   snap.RT.Direction.Slope,
			Forward: snap.RT.Direction.Forward,
		}
	}
	return inner
}

// FormatJSON returns indented telemetry for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(TelemetryJSON{Telemetry: buildInner(snap)}, "", "  ")
	return data
}

// FormatTelemetry returns compact telemetry for the command protocol.
func FormatTelemetry(snap Snapshot) []byte {
	data, _ := json.Marshal(TelemetryJSON{Telemetry: buildInner(snap)})
	return data
}

// FormatStatusEvent returns telemetry for an MQTT system event, tagged with
// an event name and optional reason.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(TelemetryJSON{Telemetry: inner})
	return data
}

// FormatStatus returns the compact status for the `status` command.
func FormatStatus(snap Snapshot) []byte {
	data, _ := json.Marshal(StatusJSON{Status: StatusInner{
		Armed:         snap.Control.Armed,
		Locked:        snap.RT.Timing.Locked,
		Recovery:      recoveryString(snap.RT.SignalLost),
		SweepUs:       snap.RT.SweepUs,
		ActiveCount:   snap.RT.ActiveCount,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
	}})
	return data
}
