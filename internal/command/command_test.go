package command

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sweeney/mirror-sync/internal/adc"
	"github.com/sweeney/mirror-sync/internal/engine"
	"github.com/sweeney/mirror-sync/internal/gpio"
	"github.com/sweeney/mirror-sync/internal/pattern"
	"github.com/sweeney/mirror-sync/internal/status"
)

func newTestHandler(t *testing.T) (*Handler, *pattern.Buffer, *gpio.FakePlayback) {
	t.Helper()
	cfg := engine.DefaultConfig()
	cfg.DirectionDelay = func(int64) {}

	pb := gpio.NewFakePlayback()
	buf := pattern.NewBuffer()
	tracker := status.NewTracker(time.Now(), status.Config{})
	eng := engine.New(cfg, buf, pb,
		adc.NewFakeSampler([]int32{100, 200}),
		engine.NewParams(engine.DefaultParamDefaults()), tracker)
	return NewHandler(eng, tracker), buf, pb
}

func handleJSON(t *testing.T, h *Handler, line string) Response {
	t.Helper()
	return h.HandleLine([]byte(line))
}

func TestArmCommand(t *testing.T) {
	h, _, pb := newTestHandler(t)

	resp := handleJSON(t, h, `{"cmd":"arm","value":true}`)
	if !resp.OK {
		t.Fatalf("arm failed: %+v", resp)
	}

	resp = handleJSON(t, h, `{"cmd":"arm","value":false}`)
	if !resp.OK {
		t.Fatalf("disarm failed: %+v", resp)
	}
	if pb.IdleCalls != 1 {
		t.Errorf("idle calls = %d, want 1 after disarm", pb.IdleCalls)
	}

	resp = handleJSON(t, h, `{"cmd":"arm","value":1}`)
	if resp.OK || resp.Error != ErrCodeInvalidValue {
		t.Errorf("arm with number: %+v, want invalid_value", resp)
	}
}

func TestStatusCommand(t *testing.T) {
	h, _, _ := newTestHandler(t)

	resp := handleJSON(t, h, `{"cmd":"status"}`)
	if !resp.OK {
		t.Fatalf("status failed: %+v", resp)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(resp.Status, &sj); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if sj.Status.Recovery != "ARMED_NORMAL" {
		t.Errorf("recovery = %q", sj.Status.Recovery)
	}
	if sj.Status.Armed {
		t.Error("armed at boot")
	}
}

func TestGetStar(t *testing.T) {
	h, _, _ := newTestHandler(t)

	resp := handleJSON(t, h, `{"cmd":"get","path":"*"}`)
	if !resp.OK {
		t.Fatalf("get *: %+v", resp)
	}

	var tj status.TelemetryJSON
	if err := json.Unmarshal(resp.Telemetry, &tj); err != nil {
		t.Fatalf("decode telemetry: %v", err)
	}
	if tj.Telemetry.TTL.TTLFreqHz != 1000000 {
		t.Errorf("ttl_freq_hz = %d, want boot default", tj.Telemetry.TTL.TTLFreqHz)
	}
}

func TestSetGetCommands(t *testing.T) {
	h, _, _ := newTestHandler(t)

	resp := handleJSON(t, h, `{"cmd":"set","path":"ttl.pixelWidth_us","value":5}`)
	if !resp.OK {
		t.Fatalf("set failed: %+v", resp)
	}

	resp = handleJSON(t, h, `{"cmd":"get","path":"ttl.pixelWidth_us"}`)
	if !resp.OK {
		t.Fatalf("get failed: %+v", resp)
	}
	// Response.Value is any; through a JSON round trip it stays float64
	// here because Handle returns the engine's int64 directly.
	if v, ok := resp.Value.(int64); !ok || v != 5 {
		t.Errorf("value = %v (%T), want int64 5", resp.Value, resp.Value)
	}
}

func TestSetErrorMapping(t *testing.T) {
	h, _, _ := newTestHandler(t)

	tests := []struct {
		line string
		want string
	}{
		{`{"cmd":"set","path":"no.such","value":1}`, ErrCodeUnsupportedPath},
		{`{"cmd":"set","path":"ttl.pixelWidth_us","value":99999}`, ErrCodeOutOfRange},
		{`{"cmd":"set","path":"ttl.pixelWidth_us","value":1.5}`, ErrCodeInvalidValue},
		{`{"cmd":"set","path":"dots.testPatternEnable","value":"yes"}`, ErrCodeInvalidValue},
		{`{"cmd":"get","path":"no.such"}`, ErrCodeUnsupportedPath},
		{`{"cmd":"frobnicate"}`, ErrCodeUnknownCommand},
		{`{not json`, ErrCodeBadRequest},
	}
	for _, tt := range tests {
		resp := handleJSON(t, h, tt.line)
		if resp.OK || resp.Error != tt.want {
			t.Errorf("%s: got %+v, want error %s", tt.line, resp, tt.want)
		}
	}
}

func TestDotsUploadAndSwap(t *testing.T) {
	h, buf, _ := newTestHandler(t)

	resp := handleJSON(t, h,
		`{"cmd":"dots.inactive","dots":[{"idxNorm":0,"rgbMask":7},{"idxNorm":32768,"rgbMask":1},{"idxNorm":65535,"rgbMask":4}]}`)
	if !resp.OK {
		t.Fatalf("upload failed: %+v", resp)
	}
	if resp.Accepted == nil || *resp.Accepted != 3 {
		t.Fatalf("accepted = %v, want 3", resp.Accepted)
	}

	resp = handleJSON(t, h, `{"cmd":"dots.swap","value":true}`)
	if !resp.OK {
		t.Fatalf("swap failed: %+v", resp)
	}
	if !buf.SwapPending() {
		t.Fatal("swap true did not schedule a swap")
	}

	// False withdraws the request instead of scheduling one.
	resp = handleJSON(t, h, `{"cmd":"dots.swap","value":false}`)
	if !resp.OK {
		t.Fatalf("swap cancel failed: %+v", resp)
	}
	if buf.SwapPending() {
		t.Fatal("swap false left a swap scheduled")
	}

	resp = handleJSON(t, h, `{"cmd":"dots.swap","value":1}`)
	if resp.OK || resp.Error != ErrCodeInvalidValue {
		t.Errorf("swap with number: %+v, want invalid_value", resp)
	}
	resp = handleJSON(t, h, `{"cmd":"dots.swap"}`)
	if resp.OK || resp.Error != ErrCodeInvalidValue {
		t.Errorf("swap without value: %+v, want invalid_value", resp)
	}
	if buf.SwapPending() {
		t.Fatal("rejected request scheduled a swap")
	}
}

func TestUploadOverCapacity(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := Request{Cmd: "dots.inactive", Dots: make([]Dot, 1200)}
	for i := range req.Dots {
		req.Dots[i] = Dot{IdxNorm: uint16(i), RGBMask: 7}
	}
	resp := h.Handle(req)
	if !resp.OK {
		t.Fatalf("upload failed: %+v", resp)
	}
	if resp.Accepted == nil || *resp.Accepted != pattern.Capacity {
		t.Fatalf("accepted = %v, want %d", resp.Accepted, pattern.Capacity)
	}
}
