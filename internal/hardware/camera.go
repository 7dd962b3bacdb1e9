// Package hardware contains the rig's physical collaborators: the camera,
// the stepper motor and the optional advance trigger.
package hardware

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os/exec"
	"sync/atomic"
)

// Camera opens a capture device.
type Camera interface {
	Open() (Device, error)
}

// Device captures JPEG frames. Capture blocks until a frame is ready.
type Device interface {
	Capture() ([]byte, error)
	Close() error
}

// SimCamera produces small synthetic JPEG frames. It is used when no
// camera is attached.
type SimCamera struct {
	Width, Height int
	frames        atomic.Int64
}

func NewSimCamera(width, height int) *SimCamera {
	return &SimCamera{Width: width, Height: height}
}

func (c *SimCamera) Open() (Device, error) {
	if c.Width <= 0 || c.Height <= 0 {
		return nil, fmt.Errorf("invalid simulated frame size %dx%d", c.Width, c.Height)
	}
	return simDevice{cam: c}, nil
}

// Frames returns how many frames were captured so far.
func (c *SimCamera) Frames() int64 {
	return c.frames.Load()
}

type simDevice struct {
	cam *SimCamera
}

func (d simDevice) Capture() ([]byte, error) {
	n := d.cam.frames.Add(1)
	img := image.NewGray(image.Rect(0, 0, d.cam.Width, d.cam.Height))
	shade := color.Gray{Y: uint8(n * 16)}
	for y := 0; y < d.cam.Height; y++ {
		for x := 0; x < d.cam.Width; x++ {
			img.SetGray(x, y, shade)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 75}); err != nil {
		return nil, fmt.Errorf("failed to encode simulated frame: %w", err)
	}
	return buf.Bytes(), nil
}

func (d simDevice) Close() error { return nil }

// CommandCamera captures a frame by running an external program that
// writes a JPEG to stdout, e.g. "libcamera-still -n -o -".
type CommandCamera struct {
	Name string
	Args []string
}

func NewCommandCamera(command []string) (*CommandCamera, error) {
	if len(command) == 0 {
		return nil, errors.New("camera command is empty")
	}
	return &CommandCamera{Name: command[0], Args: command[1:]}, nil
}

func (c *CommandCamera) Open() (Device, error) {
	if _, err := exec.LookPath(c.Name); err != nil {
		return nil, fmt.Errorf("camera command %q not available: %w", c.Name, err)
	}
	return commandDevice{cam: c}, nil
}

type commandDevice struct {
	cam *CommandCamera
}

func (d commandDevice) Capture() ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.Command(d.cam.Name, d.cam.Args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("capture command failed: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	if len(out) == 0 {
		return nil, errors.New("capture command produced no data")
	}
	return out, nil
}

func (d commandDevice) Close() error { return nil }
