package tryon

import (
	"time"

	"github.com/pkg/errors"

	"github.com/ayusman/ringfit/internal/capture"
)

// State is the controller lifecycle state.
type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateActive   State = "active"
	StateError    State = "error"
)

// Reason classifies why acquiring the camera failed.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonPermissionDenied Reason = "permission-denied"
	ReasonNoDevice         Reason = "no-device"
	ReasonGeneric          Reason = "generic-failure"
)

// User-facing messages for each failure reason.
const (
	MsgPermissionDenied = "Camera access denied. Please allow camera permissions and try again."
	MsgNoDevice         = "No camera found on this device."
	MsgGeneric          = "Failed to start camera. Please try again."
)

// Message returns the text shown to the user for r.
func (r Reason) Message() string {
	switch r {
	case ReasonPermissionDenied:
		return MsgPermissionDenied
	case ReasonNoDevice:
		return MsgNoDevice
	case ReasonGeneric:
		return MsgGeneric
	default:
		return ""
	}
}

func classify(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, capture.ErrPermissionDenied):
		return ReasonPermissionDenied
	case errors.Is(err, capture.ErrNoDevice):
		return ReasonNoDevice
	default:
		return ReasonGeneric
	}
}

// Status is the read-only view the presentation layer renders.
type Status struct {
	State        State  `json:"state"`
	Active       bool   `json:"active"`
	HandDetected bool   `json:"hand_detected"`
	Loading      bool   `json:"loading"`
	Error        string `json:"error,omitempty"`
	Reason       Reason `json:"reason,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
}

// Badge is the short label for the status indicator.
func (s Status) Badge() string {
	switch {
	case s.Error != "":
		return s.Error
	case s.Loading:
		return "Starting…"
	case s.Active && s.HandDetected:
		return "Tracking"
	case s.Active:
		return "Searching…"
	default:
		return "Camera off"
	}
}

// Outcome records how a session ended.
type Outcome string

const (
	OutcomeStopped  Outcome = "stopped"
	OutcomeCanceled Outcome = "canceled"
	OutcomeFailed   Outcome = "failed"
)

// Session summarizes one start-to-stop run.
type Session struct {
	ID              string    `json:"id"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	Outcome         Outcome   `json:"outcome"`
	Reason          Reason    `json:"reason,omitempty"`
	FramesSubmitted int       `json:"frames_submitted"`
	HandFrames      int       `json:"hand_frames"`
}

// Event is delivered to subscribers after every status change. Ended is set
// when the change closed a session.
type Event struct {
	Prev   Status
	Status Status
	Ended  *Session
}
