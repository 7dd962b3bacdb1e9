package hardware

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimCamera(t *testing.T) {
	cam := NewSimCamera(8, 6)
	dev, err := cam.Open()
	require.NoError(t, err)
	defer dev.Close()

	frame, err := dev.Capture()
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 6, img.Bounds().Dy())
	assert.Equal(t, int64(1), cam.Frames())

	_, err = NewSimCamera(0, 0).Open()
	assert.Error(t, err)
}

func TestCommandCamera(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	t.Run("Captures stdout", func(t *testing.T) {
		cam, err := NewCommandCamera([]string{"sh", "-c", "printf frame"})
		require.NoError(t, err)
		dev, err := cam.Open()
		require.NoError(t, err)
		frame, err := dev.Capture()
		require.NoError(t, err)
		assert.Equal(t, []byte("frame"), frame)
	})

	t.Run("Command failure", func(t *testing.T) {
		cam, err := NewCommandCamera([]string{"sh", "-c", "echo no camera >&2; exit 1"})
		require.NoError(t, err)
		dev, err := cam.Open()
		require.NoError(t, err)
		_, err = dev.Capture()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no camera")
	})

	t.Run("Missing program", func(t *testing.T) {
		cam, err := NewCommandCamera([]string{"definitely-not-a-camera-binary"})
		require.NoError(t, err)
		_, err = cam.Open()
		assert.Error(t, err)
	})

	_, err := NewCommandCamera(nil)
	assert.Error(t, err)
}

type failingPin struct{}

func (failingPin) High() error { return errors.New("gpio busy") }
func (failingPin) Low() error  { return nil }

func TestMotorSteps(t *testing.T) {
	pin := &SimPin{}
	m := NewMotor(pin, 0, 0)
	require.NoError(t, m.Steps(25))
	assert.Equal(t, int64(25), pin.Pulses())

	require.NoError(t, m.Steps(0))
	assert.Equal(t, int64(25), pin.Pulses())

	err := NewMotor(failingPin{}, 0, 0).Steps(1)
	assert.ErrorContains(t, err, "gpio busy")
}

func TestMotorTiming(t *testing.T) {
	m := NewMotor(&SimPin{}, 2*time.Millisecond, 3*time.Millisecond)
	start := time.Now()
	require.NoError(t, m.Steps(4))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestGPIOPin(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "gpio17")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "value"), []byte("0"), 0644))

	pin, err := OpenGPIOPin(root, 17)
	require.NoError(t, err)
	defer pin.Close()

	direction, err := os.ReadFile(filepath.Join(dir, "direction"))
	require.NoError(t, err)
	assert.Equal(t, "out", string(direction))

	require.NoError(t, pin.High())
	value, _ := os.ReadFile(filepath.Join(dir, "value"))
	assert.Equal(t, "1", string(value))

	require.NoError(t, pin.Low())
	value, _ = os.ReadFile(filepath.Join(dir, "value"))
	assert.Equal(t, "0", string(value))
}

func TestFileTrigger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "advance")
	trig, err := NewFileTrigger(path)
	require.NoError(t, err)

	t.Run("Fires on create", func(t *testing.T) {
		done := make(chan error, 1)
		go func() { done <- trig.Wait(context.Background()) }()

		// Keep touching the file until the watcher has picked it up.
		deadline := time.After(5 * time.Second)
		for {
			require.NoError(t, os.WriteFile(path, []byte("1"), 0644))
			select {
			case err := <-done:
				assert.NoError(t, err)
				return
			case <-deadline:
				t.Fatal("trigger did not fire")
			case <-time.After(20 * time.Millisecond):
			}
		}
	})

	t.Run("Touch before Wait is not seen", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("1"), 0644))
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, trig.Wait(ctx), context.DeadlineExceeded)
	})

	t.Run("Ignores other files", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		go os.WriteFile(filepath.Join(filepath.Dir(path), "other"), []byte("1"), 0644)
		err := trig.Wait(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	_, err = NewFileTrigger("")
	assert.Error(t, err)
}

func newFakeGPIOInput(t *testing.T, line int, value string) (root, valuePath string) {
	t.Helper()
	root = t.TempDir()
	dir := filepath.Join(root, "gpio"+strconv.Itoa(line))
	require.NoError(t, os.MkdirAll(dir, 0755))
	valuePath = filepath.Join(dir, "value")
	require.NoError(t, os.WriteFile(valuePath, []byte(value+"\n"), 0644))
	return root, valuePath
}

func TestGPIOTrigger(t *testing.T) {
	t.Run("Fires on rising edge", func(t *testing.T) {
		root, valuePath := newFakeGPIOInput(t, 22, "0")
		trig, err := OpenGPIOTrigger(root, 22)
		require.NoError(t, err)
		trig.interval = time.Millisecond

		direction, err := os.ReadFile(filepath.Join(root, "gpio22", "direction"))
		require.NoError(t, err)
		assert.Equal(t, "in", string(direction))

		done := make(chan error, 1)
		go func() { done <- trig.Wait(context.Background()) }()

		time.Sleep(10 * time.Millisecond)
		require.NoError(t, os.WriteFile(valuePath, []byte("1\n"), 0644))

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("trigger did not fire")
		}
	})

	t.Run("Held button does not fire", func(t *testing.T) {
		root, _ := newFakeGPIOInput(t, 23, "1")
		trig, err := OpenGPIOTrigger(root, 23)
		require.NoError(t, err)
		trig.interval = time.Millisecond

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, trig.Wait(ctx), context.DeadlineExceeded)
	})

	t.Run("Missing value file", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, "gpio24"), 0755))
		_, err := OpenGPIOTrigger(root, 24)
		assert.Error(t, err)
	})
}

func TestTriggerFunc(t *testing.T) {
	called := false
	var trig Trigger = TriggerFunc(func(ctx context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, trig.Wait(context.Background()))
	assert.True(t, called)
}
