// Package command implements the line-oriented JSON control protocol over
// TCP. Each request is one JSON object on one line; each response is one
// JSON line. The protocol is how host tooling uploads dot patterns, arms the
// output, and tunes parameters at runtime.
package command

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sweeney/mirror-sync/internal/engine"
	"github.com/sweeney/mirror-sync/internal/pattern"
	"github.com/sweeney/mirror-sync/internal/status"
)

// Request is one decoded command line.
type Request struct {
	Cmd   string `json:"cmd"`
	Path  string `json:"path,omitempty"`
	Value any    `json:"value,omitempty"`
	Dots  []Dot  `json:"dots,omitempty"`
}

// Dot is the wire form of one pattern point.
type Dot struct {
	IdxNorm uint16 `json:"idxNorm"`
	RGBMask uint8  `json:"rgbMask"`
}

// Response is one reply line. Exactly one of the optional fields is set
// depending on the command.
type Response struct {
	OK        bool            `json:"ok"`
	Error     string          `json:"error,omitempty"`
	Detail    string          `json:"detail,omitempty"`
	Path      string          `json:"path,omitempty"`
	Value     any             `json:"value,omitempty"`
	Accepted  *int            `json:"accepted,omitempty"`
	Telemetry json.RawMessage `json:"telemetry,omitempty"`
	Status    json.RawMessage `json:"status,omitempty"`
}

// Protocol error codes carried in Response.Error.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeUnknownCommand  = "unknown_command"
	ErrCodeUnsupportedPath = "unsupported_path"
	ErrCodeOutOfRange      = "out_of_range"
	ErrCodeInvalidValue    = "invalid_value"
)

// Handler executes decoded requests against the engine and tracker. It holds
// no per-connection state, so one handler serves all connections.
type Handler struct {
	eng     *engine.Engine
	tracker *status.Tracker
}

// NewHandler creates a Handler.
func NewHandler(eng *engine.Engine, tracker *status.Tracker) *Handler {
	return &Handler{eng: eng, tracker: tracker}
}

// HandleLine decodes one request line and returns the reply.
func (h *Handler) HandleLine(line []byte) Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return errResponse(ErrCodeBadRequest, err.Error())
	}
	return h.Handle(req)
}

// Handle executes one request.
func (h *Handler) Handle(req Request) Response {
	switch req.Cmd {
	case "arm":
		v, ok := req.Value.(bool)
		if !ok {
			return errResponse(ErrCodeInvalidValue, fmt.Sprintf("arm wants bool, got %T", req.Value))
		}
		h.eng.Arm(v)
		return Response{OK: true}

	case "status":
		snap := h.tracker.Snapshot()
		return Response{OK: true, Status: status.FormatStatus(snap)}

	case "get":
		if req.Path == "*" {
			snap := h.tracker.Snapshot()
			return Response{OK: true, Telemetry: status.FormatTelemetry(snap)}
		}
		v, err := h.eng.Get(req.Path)
		if err != nil {
			return mapEngineErr(err)
		}
		return Response{OK: true, Path: req.Path, Value: v}

	case "set":
		if err := h.eng.Set(req.Path, req.Value); err != nil {
			return mapEngineErr(err)
		}
		return Response{OK: true, Path: req.Path}

	case "dots.inactive":
		points := make([]pattern.Point, len(req.Dots))
		for i, d := range req.Dots {
			points[i] = pattern.Point{IdxNorm: d.IdxNorm, Mask: pattern.Mask(d.RGBMask)}
		}
		n := h.eng.UploadInactive(points)
		return Response{OK: true, Accepted: &n}

	case "dots.swap":
		v, ok := req.Value.(bool)
		if !ok {
			return errResponse(ErrCodeInvalidValue, fmt.Sprintf("dots.swap wants bool, got %T", req.Value))
		}
		h.eng.RequestSwap(v)
		return Response{OK: true}

	default:
		return errResponse(ErrCodeUnknownCommand, fmt.Sprintf("unknown cmd %q", req.Cmd))
	}
}

func mapEngineErr(err error) Response {
	code := ErrCodeBadRequest
	switch {
	case errors.Is(err, engine.ErrUnsupportedPath):
		code = ErrCodeUnsupportedPath
	case errors.Is(err, engine.ErrValueOutOfRange):
		code = ErrCodeOutOfRange
	case errors.Is(err, engine.ErrInvalidValue):
		code = ErrCodeInvalidValue
	}
	return errResponse(code, err.Error())
}

func errResponse(code, detail string) Response {
	return Response{Error: code, Detail: detail}
}
