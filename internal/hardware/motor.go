package hardware

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"
)

// Pin is a digital output driving the stepper driver's step input.
type Pin interface {
	High() error
	Low() error
}

// Motor emits step pulses with fixed on/off timing.
type Motor struct {
	pin      Pin
	pulseOn  time.Duration
	pulseOff time.Duration
}

func NewMotor(pin Pin, pulseOn, pulseOff time.Duration) *Motor {
	return &Motor{pin: pin, pulseOn: pulseOn, pulseOff: pulseOff}
}

// Steps emits the given number of pulses. It blocks for
// pulses * (pulseOn + pulseOff) and cannot be interrupted.
func (m *Motor) Steps(pulses int) error {
	for i := 0; i < pulses; i++ {
		if err := m.pin.High(); err != nil {
			return fmt.Errorf("motor pulse on: %w", err)
		}
		time.Sleep(m.pulseOn)
		if err := m.pin.Low(); err != nil {
			return fmt.Errorf("motor pulse off: %w", err)
		}
		time.Sleep(m.pulseOff)
	}
	return nil
}

// SimPin counts pulses instead of driving hardware.
type SimPin struct {
	high   atomic.Bool
	pulses atomic.Int64
}

func (p *SimPin) High() error {
	p.high.Store(true)
	return nil
}

func (p *SimPin) Low() error {
	if p.high.Swap(false) {
		p.pulses.Add(1)
	}
	return nil
}

// Pulses returns the number of complete pulses seen.
func (p *SimPin) Pulses() int64 {
	return p.pulses.Load()
}

// GPIOPin drives a Linux sysfs GPIO line.
type GPIOPin struct {
	value *os.File
}

// OpenGPIOPin exports the line under root (normally /sys/class/gpio) if
// needed and configures it as an output.
func OpenGPIOPin(root string, line int) (*GPIOPin, error) {
	dir := filepath.Join(root, "gpio"+strconv.Itoa(line))
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.WriteFile(filepath.Join(root, "export"), []byte(strconv.Itoa(line)), 0200); err != nil {
			return nil, fmt.Errorf("failed to export gpio %d: %w", line, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "direction"), []byte("out"), 0644); err != nil {
		return nil, fmt.Errorf("failed to set gpio %d direction: %w", line, err)
	}
	value, err := os.OpenFile(filepath.Join(dir, "value"), os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open gpio %d value: %w", line, err)
	}
	return &GPIOPin{value: value}, nil
}

func (p *GPIOPin) High() error {
	_, err := p.value.WriteAt([]byte("1"), 0)
	return err
}

func (p *GPIOPin) Low() error {
	_, err := p.value.WriteAt([]byte("0"), 0)
	return err
}

func (p *GPIOPin) Close() error {
	return p.value.Close()
}
