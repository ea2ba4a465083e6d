package capture

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// videoDevicePath is where V4L2 exposes capture devices.
var videoDevicePath = "/dev/video%d"

// videoClassDir lists V4L2 devices with their human readable names.
var videoClassDir = "/sys/class/video4linux"

// facingHints are name fragments that mark a device as facing the user or
// facing away. Matching is case-insensitive.
var facingHints = map[string][]string{
	FacingUser:        {"front", "user", "facetime", "integrated", "webcam"},
	FacingEnvironment: {"back", "rear", "environment", "world"},
}

// probeDevice classifies why a device cannot be opened before OpenCV hides
// the reason behind a generic failure. Only Linux exposes device nodes we
// can check; elsewhere it always succeeds.
func probeDevice(id int) error {
	if runtime.GOOS != "linux" {
		return nil
	}
	return probePath(fmt.Sprintf(videoDevicePath, id))
}

func probePath(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	switch {
	case err == nil:
		return f.Close()
	case errors.Is(err, fs.ErrNotExist):
		return errors.Wrap(ErrNoDevice, path)
	case errors.Is(err, fs.ErrPermission):
		return errors.Wrap(ErrPermissionDenied, path)
	default:
		return errors.Wrapf(err, "probe %s", path)
	}
}

type videoDevice struct {
	id   int
	name string
}

// selectDevice resolves the device index to open. An explicit DeviceID
// wins; AutoDevice picks by FacingMode among the devices the OS lists.
func selectDevice(c Constraints) int {
	if c.DeviceID != AutoDevice {
		return c.DeviceID
	}
	var devices []videoDevice
	if runtime.GOOS == "linux" {
		devices = listDevices(videoClassDir)
	}
	return pickDevice(devices, c.FacingMode)
}

// listDevices reads videoN/name entries under dir, ordered by index.
func listDevices(dir string) []videoDevice {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var devices []videoDevice
	for _, e := range entries {
		id, err := strconv.Atoi(strings.TrimPrefix(e.Name(), "video"))
		if err != nil || !strings.HasPrefix(e.Name(), "video") {
			continue
		}
		name, err := os.ReadFile(filepath.Join(dir, e.Name(), "name"))
		if err != nil {
			continue
		}
		devices = append(devices, videoDevice{id: id, name: strings.TrimSpace(string(name))})
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].id < devices[j].id })
	return devices
}

// pickDevice returns the lowest-indexed device whose name matches facing,
// else the first device, else 0. A camera often exposes a metadata node
// after its capture node under the same name, so the lowest index is the
// one to open.
func pickDevice(devices []videoDevice, facing string) int {
	if len(devices) == 0 {
		return 0
	}
	for _, d := range devices {
		name := strings.ToLower(d.name)
		for _, hint := range facingHints[strings.ToLower(facing)] {
			if strings.Contains(name, hint) {
				return d.id
			}
		}
	}
	return devices[0].id
}
