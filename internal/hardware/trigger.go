package hardware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Trigger blocks until the operator signals that the next round may start.
type Trigger interface {
	Wait(ctx context.Context) error
}

// TriggerFunc adapts a function to the Trigger interface.
type TriggerFunc func(ctx context.Context) error

func (f TriggerFunc) Wait(ctx context.Context) error { return f(ctx) }

// FileTrigger fires when its file is created or written, e.g. by an
// operator running `touch advance`. Kernel attribute files such as sysfs
// GPIO values never produce these events; use GPIOTrigger for a button.
type FileTrigger struct {
	path string
}

func NewFileTrigger(path string) (*FileTrigger, error) {
	if path == "" {
		return nil, errors.New("trigger path is empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return &FileTrigger{path: abs}, nil
}

// Wait watches the trigger file's directory, so the file does not need to
// exist yet. Only events that arrive after the watch is in place count: a
// touch made before Wait was called, or while it is still setting up the
// watch, is not seen.
func (t *FileTrigger) Wait(ctx context.Context) error {
	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create trigger directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch trigger directory: %w", err)
	}

	log.Printf("Waiting for trigger on %s", t.path)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("trigger watcher closed")
			}
			if filepath.Clean(event.Name) != t.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				return nil
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("trigger watcher closed")
			}
			log.Printf("Trigger watcher error: %v", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

const gpioPollInterval = 10 * time.Millisecond

// GPIOTrigger fires on a rising edge of a sysfs GPIO input, such as a
// push button pulling the line high. The value is polled, since sysfs
// value changes are not visible to file watchers.
type GPIOTrigger struct {
	value    string
	interval time.Duration
}

// OpenGPIOTrigger exports the line under root (normally /sys/class/gpio)
// if needed and configures it as an input.
func OpenGPIOTrigger(root string, line int) (*GPIOTrigger, error) {
	dir := filepath.Join(root, "gpio"+strconv.Itoa(line))
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.WriteFile(filepath.Join(root, "export"), []byte(strconv.Itoa(line)), 0200); err != nil {
			return nil, fmt.Errorf("failed to export gpio %d: %w", line, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "direction"), []byte("in"), 0644); err != nil {
		return nil, fmt.Errorf("failed to set gpio %d direction: %w", line, err)
	}
	t := &GPIOTrigger{value: filepath.Join(dir, "value"), interval: gpioPollInterval}
	if _, err := t.read(); err != nil {
		return nil, err
	}
	return t, nil
}

// Wait returns once the line goes from low to high. A button that is
// already held when Wait starts must be released and pressed again.
func (t *GPIOTrigger) Wait(ctx context.Context) error {
	prev, err := t.read()
	if err != nil {
		return err
	}

	log.Printf("Waiting for trigger on %s", t.value)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			high, err := t.read()
			if err != nil {
				return err
			}
			if high && !prev {
				return nil
			}
			prev = high
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (t *GPIOTrigger) read() (bool, error) {
	data, err := os.ReadFile(t.value)
	if err != nil {
		return false, fmt.Errorf("failed to read trigger gpio: %w", err)
	}
	return strings.TrimSpace(string(data)) == "1", nil
}
