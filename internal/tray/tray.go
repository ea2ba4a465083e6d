// Package tray provides the desktop system tray menu for ringfit.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/ringfit/internal/tryon"
)

// Tray is the system tray menu: camera controls, a status line, settings and quit.
type Tray struct {
	onStart    func()
	onStop     func()
	onRestart  func()
	onSettings func()
	onQuit     func()
	status     tryon.Status
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuStatus  *systray.MenuItem
	menuStart   *systray.MenuItem
	menuStop    *systray.MenuItem
	menuRestart *systray.MenuItem
}

// New creates a Tray showing an idle camera.
func New() *Tray {
	return &Tray{status: tryon.Status{State: tryon.StateIdle}}
}

// OnStart sets the callback for the Start Camera item.
func (t *Tray) OnStart(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStart = fn
}

// OnStop sets the callback for the Stop Camera item.
func (t *Tray) OnStop(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStop = fn
}

// OnRestart sets the callback for the Restart Camera item.
func (t *Tray) OnRestart(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRestart = fn
}

// OnSettings sets the callback for the Open Settings item.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback for the Quit item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Ringfit")
	systray.SetTooltip("Ringfit ring try-on")

	t.mu.Lock()
	t.menuStatus = systray.AddMenuItem("", "Camera status")
	t.menuStatus.Disable()
	systray.AddSeparator()

	t.menuStart = systray.AddMenuItem("Start Camera", "Start the try-on camera")
	t.menuStop = systray.AddMenuItem("Stop Camera", "Stop the try-on camera")
	t.menuRestart = systray.AddMenuItem("Restart Camera", "Release and reacquire the camera")
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open the try-on page in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Ringfit")
	t.applyLocked()
	t.mu.Unlock()

	go func() {
		for {
			select {
			case <-t.menuStart.ClickedCh:
				t.fire(func() func() { return t.onStart })
			case <-t.menuStop.ClickedCh:
				t.fire(func() func() { return t.onStop })
			case <-t.menuRestart.ClickedCh:
				t.fire(func() func() { return t.onRestart })
			case <-menuSettings.ClickedCh:
				t.fire(func() func() { return t.onSettings })
			case <-menuQuit.ClickedCh:
				t.fire(func() func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// fire runs the callback picked under the lock, outside of it.
func (t *Tray) fire(pick func() func()) {
	t.mu.RLock()
	callback := pick()
	t.mu.RUnlock()

	if callback != nil {
		go callback()
	}
}

// SetStatus updates the status line and which camera items are enabled.
func (t *Tray) SetStatus(st tryon.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = st
	t.applyLocked()
}

// Status returns the status the menu currently shows.
func (t *Tray) Status() tryon.Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *Tray) applyLocked() {
	if t.menuStatus == nil {
		return
	}

	m := menuFor(t.status)
	t.menuStatus.SetTitle(m.status)
	setEnabled(t.menuStart, m.start)
	setEnabled(t.menuStop, m.stop)
	setEnabled(t.menuRestart, m.restart)
}

func setEnabled(item *systray.MenuItem, enabled bool) {
	if enabled {
		item.Enable()
	} else {
		item.Disable()
	}
}

// menu is what the tray shows for one status.
type menu struct {
	status  string
	start   bool
	stop    bool
	restart bool
}

func menuFor(st tryon.Status) menu {
	m := menu{status: "● " + st.Badge()}
	switch st.State {
	case tryon.StateActive:
		m.stop, m.restart = true, true
	case tryon.StateStarting:
		m.stop = true
	case tryon.StateError:
		m.status = "⚠ " + st.Badge()
		m.start, m.restart = true, true
	default:
		m.status = "○ " + st.Badge()
		m.start = true
	}
	return m
}
