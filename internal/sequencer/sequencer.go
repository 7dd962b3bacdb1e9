// Package sequencer runs the capture loop of one acquisition job.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"

	"github.com/vrsandeep/turntable-go/internal/hardware"
	"github.com/vrsandeep/turntable-go/internal/models"
)

// Stepper moves the turntable by a number of motor pulses.
type Stepper interface {
	Steps(pulses int) error
}

// ImageSink receives captured frames. *imagestore.Store implements it.
type ImageSink interface {
	Store(name string, data []byte) error
}

// ProgressSink records the last completed capture. *progress.Tracker
// implements it.
type ProgressSink interface {
	Update(round, image int)
}

// ErrInvalidSpec is returned by Validate for jobs the rig cannot run.
var ErrInvalidSpec = errors.New("invalid job specification")

// Config wires a Sequencer to its collaborators. Trigger is optional.
type Config struct {
	Camera           hardware.Camera
	Motor            Stepper
	Trigger          hardware.Trigger
	Images           ImageSink
	Progress         ProgressSink
	StepsPerRotation int
}

// Result summarizes a finished run.
type Result struct {
	Captured  int
	Cancelled bool
}

type Sequencer struct {
	cfg Config
}

func New(cfg Config) (*Sequencer, error) {
	switch {
	case cfg.Camera == nil:
		return nil, errors.New("sequencer: camera is required")
	case cfg.Motor == nil:
		return nil, errors.New("sequencer: motor is required")
	case cfg.Images == nil:
		return nil, errors.New("sequencer: image sink is required")
	case cfg.Progress == nil:
		return nil, errors.New("sequencer: progress sink is required")
	case cfg.StepsPerRotation <= 0:
		return nil, fmt.Errorf("sequencer: invalid steps per rotation %d", cfg.StepsPerRotation)
	}
	return &Sequencer{cfg: cfg}, nil
}

// Pulses returns the motor pulses between two captures of a round with
// the given number of images.
func (s *Sequencer) Pulses(images int) int {
	if images <= 0 {
		return 0
	}
	return s.cfg.StepsPerRotation / images
}

// Validate rejects negative image counts and rounds with more images than
// motor steps per rotation, which would leave the turntable standing still
// between captures.
func (s *Sequencer) Validate(spec models.JobSpec) error {
	for round, count := range spec.Rounds {
		if count < 0 {
			return fmt.Errorf("%w: round %d has negative image count %d", ErrInvalidSpec, round, count)
		}
		if count > s.cfg.StepsPerRotation {
			return fmt.Errorf("%w: round %d has %d images, at most %d are possible",
				ErrInvalidSpec, round, count, s.cfg.StepsPerRotation)
		}
	}
	return nil
}

// Run executes spec round by round. For every image it advances the
// motor, captures a frame, stores it and only then looks at ctx: once ctx
// is done the run stops without touching progress again. Cancellation is
// reported through Result, not as an error. Hardware and storage errors
// end the run immediately; nothing already stored is rolled back.
//
// onCapture, if not nil, is called after each progress update.
//
// Run pins the calling goroutine to its OS thread for the duration of the
// job so that pulse timing is not affected by other goroutines.
func (s *Sequencer) Run(ctx context.Context, spec models.JobSpec, onCapture func(round, image int)) (Result, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var res Result

	dev, err := s.cfg.Camera.Open()
	if err != nil {
		return res, fmt.Errorf("failed to open camera: %w", err)
	}
	defer dev.Close()

	for round, count := range spec.Rounds {
		pulses := s.Pulses(count)
		for image := 0; image < count; image++ {
			if image == 0 && s.cfg.Trigger != nil {
				if err := s.cfg.Trigger.Wait(ctx); err != nil {
					if ctx.Err() != nil {
						res.Cancelled = true
						return res, nil
					}
					return res, fmt.Errorf("waiting for trigger before round %d: %w", round, err)
				}
			}

			if err := s.cfg.Motor.Steps(pulses); err != nil {
				return res, fmt.Errorf("failed to move motor for image %d of round %d: %w", image, round, err)
			}

			frame, err := dev.Capture()
			if err != nil {
				return res, fmt.Errorf("failed to capture image %d of round %d: %w", image, round, err)
			}

			name := models.ImageName(round, image)
			if err := s.cfg.Images.Store(name, frame); err != nil {
				return res, fmt.Errorf("failed to store %s: %w", name, err)
			}
			res.Captured++

			if ctx.Err() != nil {
				log.Printf("Job cancelled after storing %s", name)
				res.Cancelled = true
				return res, nil
			}

			s.cfg.Progress.Update(round, image)
			if onCapture != nil {
				onCapture(round, image)
			}
		}
	}
	return res, nil
}
