package tray

import (
	"testing"

	"github.com/ayusman/ringfit/internal/tryon"
)

func TestMenuFor(t *testing.T) {
	tests := []struct {
		name   string
		status tryon.Status
		want   menu
	}{
		{
			name:   "idle",
			status: tryon.Status{State: tryon.StateIdle},
			want:   menu{status: "○ Camera off", start: true},
		},
		{
			name:   "starting",
			status: tryon.Status{State: tryon.StateStarting, Loading: true},
			want:   menu{status: "● Starting…", stop: true},
		},
		{
			name:   "searching",
			status: tryon.Status{State: tryon.StateActive, Active: true},
			want:   menu{status: "● Searching…", stop: true, restart: true},
		},
		{
			name:   "tracking",
			status: tryon.Status{State: tryon.StateActive, Active: true, HandDetected: true},
			want:   menu{status: "● Tracking", stop: true, restart: true},
		},
		{
			name:   "error",
			status: tryon.Status{State: tryon.StateError, Error: tryon.MsgPermissionDenied},
			want:   menu{status: "⚠ " + tryon.MsgPermissionDenied, start: true, restart: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := menuFor(tt.status); got != tt.want {
				t.Errorf("menuFor() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSetStatus_BeforeRun(t *testing.T) {
	tr := New()
	if tr.Status().State != tryon.StateIdle {
		t.Errorf("initial state = %s, want idle", tr.Status().State)
	}

	st := tryon.Status{State: tryon.StateActive, Active: true}
	tr.SetStatus(st)
	if tr.Status() != st {
		t.Errorf("Status() = %+v, want %+v", tr.Status(), st)
	}
}
