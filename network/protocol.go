package network

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrUnknownType      = errors.New("unknown message type")
	ErrNoPitch          = errors.New("note needs one of key, note, frequency, phase_per_sample")
	ErrAmbiguousPitch   = errors.New("note has more than one pitch field")
	ErrInvalidGain      = errors.New("gain must be finite")
	ErrServerFull       = errors.New("max peers reached")
	ErrAlreadyRunning   = errors.New("server already running")
	ErrNilTarget        = errors.New("nil trigger target")
)

// MessageType identifies the JSON message kind
type MessageType string

const (
	// Client -> server
	MsgNote  MessageType = "note"
	MsgStats MessageType = "stats"

	// Server -> client
	MsgAck   MessageType = "ack"
	MsgError MessageType = "error"
)

// Request is a client message
// A note carries exactly one pitch field
type Request struct {
	Type           MessageType `json:"type"`
	ID             string      `json:"id,omitempty"`
	Key            *float64    `json:"key,omitempty"`
	Note           string      `json:"note,omitempty"`
	Frequency      *float64    `json:"frequency,omitempty"`
	PhasePerSample *float64    `json:"phase_per_sample,omitempty"`
	Patch          string      `json:"patch,omitempty"`
	Gain           *float64    `json:"gain,omitempty"`
}

// Response is a server reply, ID echoes the request's
type Response struct {
	Type   MessageType `json:"type"`
	ID     string      `json:"id,omitempty"`
	Voices int         `json:"voices"`
	Peers  int         `json:"peers,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// DecodeRequest parses and validates one client message
// The returned request is non-nil whenever the JSON itself parsed, so the ID can be echoed
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch req.Type {
	case MsgNote:
		return &req, req.validateNote()
	case MsgStats:
		return &req, nil
	case "":
		return &req, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	default:
		return &req, fmt.Errorf("%w: %q", ErrUnknownType, req.Type)
	}
}

func (r *Request) validateNote() error {
	n := 0
	for _, set := range []bool{r.Key != nil, r.Note != "", r.Frequency != nil, r.PhasePerSample != nil} {
		if set {
			n++
		}
	}
	switch {
	case n == 0:
		return ErrNoPitch
	case n > 1:
		return ErrAmbiguousPitch
	}
	if r.Gain != nil && (math.IsNaN(*r.Gain) || math.IsInf(*r.Gain, 0)) {
		return ErrInvalidGain
	}
	return nil
}

// GainOrDefault returns the requested gain, 1.0 when absent
func (r *Request) GainOrDefault() float64 {
	if r.Gain == nil {
		return 1.0
	}
	return *r.Gain
}

// errorResponse builds an error reply for req, which may be nil
func errorResponse(req *Request, err error) *Response {
	resp := &Response{Type: MsgError, Error: err.Error()}
	if req != nil {
		resp.ID = req.ID
	}
	return resp
}
