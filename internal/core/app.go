package core

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/vrsandeep/turntable-go/internal/config"
	"github.com/vrsandeep/turntable-go/internal/db"
	"github.com/vrsandeep/turntable-go/internal/hardware"
	"github.com/vrsandeep/turntable-go/internal/imagestore"
	"github.com/vrsandeep/turntable-go/internal/jobs"
	"github.com/vrsandeep/turntable-go/internal/progress"
	"github.com/vrsandeep/turntable-go/internal/sequencer"
	"github.com/vrsandeep/turntable-go/internal/store"
	"github.com/vrsandeep/turntable-go/internal/websocket"
)

// Version is set at build time with -ldflags "-X ...core.Version=...".
var Version = "dev"

// App holds the core components of the application that are shared
// between the HTTP layer and the background job.
type App struct {
	config     *config.Config
	db         *sql.DB
	wsHub      *websocket.Hub
	images     *imagestore.Store
	tracker    *progress.Tracker
	controller *jobs.Controller
	store      *store.Store
	scheduler  *gocron.Scheduler
	closers    []func() error
}

// New sets up and returns a new App instance. It handles loading the
// configuration, initializing the database and the rig hardware, and
// wiping the image directory.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig builds an App from an already loaded configuration.
func NewWithConfig(cfg *config.Config) (*App, error) {
	app := &App{config: cfg}

	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = database
	app.closers = append(app.closers, database.Close)

	if err := db.RunMigrations(database); err != nil {
		// We can't proceed without a valid database schema.
		app.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	app.store = store.New(database)
	if n, err := app.store.MarkInterruptedJobRuns(time.Now()); err != nil {
		log.Printf("Warning: could not close interrupted job runs: %v", err)
	} else if n > 0 {
		log.Printf("Marked %d interrupted job runs as failed.", n)
	}

	// Blobs from a previous process are never indexed, so they are wiped.
	images, err := imagestore.New(imagestore.NewDiskStorage(cfg.Images.Path))
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize image store: %w", err)
	}
	app.images = images
	app.tracker = progress.NewTracker()

	camera, motor, trigger, err := app.openHardware()
	if err != nil {
		app.Close()
		return nil, err
	}

	seq, err := sequencer.New(sequencer.Config{
		Camera:           camera,
		Motor:            motor,
		Trigger:          trigger,
		Images:           images,
		Progress:         app.tracker,
		StepsPerRotation: cfg.Motor.StepsPerRotation,
	})
	if err != nil {
		app.Close()
		return nil, err
	}

	app.wsHub = websocket.NewHub()
	go app.wsHub.Run()

	app.controller = jobs.NewController(seq, images, app.tracker,
		jobs.WithRecorder(app.store),
		jobs.WithNotifier(app.wsHub),
	)

	log.Println("Core application setup complete.")
	return app, nil
}

func (a *App) openHardware() (hardware.Camera, sequencer.Stepper, hardware.Trigger, error) {
	cfg := a.config

	var camera hardware.Camera
	switch cfg.Camera.Driver {
	case "sim", "":
		camera = hardware.NewSimCamera(cfg.Camera.Width, cfg.Camera.Height)
	case "command":
		cmd, err := hardware.NewCommandCamera(strings.Fields(cfg.Camera.Command))
		if err != nil {
			return nil, nil, nil, err
		}
		camera = cmd
	default:
		return nil, nil, nil, fmt.Errorf("unknown camera driver %q", cfg.Camera.Driver)
	}

	var pin hardware.Pin
	switch cfg.Motor.Driver {
	case "sim", "":
		pin = &hardware.SimPin{}
	case "gpio":
		gpio, err := hardware.OpenGPIOPin(cfg.Motor.GPIORoot, cfg.Motor.GPIOLine)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open motor driver: %w", err)
		}
		a.closers = append(a.closers, gpio.Close)
		pin = gpio
	default:
		return nil, nil, nil, fmt.Errorf("unknown motor driver %q", cfg.Motor.Driver)
	}
	motor := hardware.NewMotor(pin, cfg.Motor.PulseOn, cfg.Motor.PulseOff)

	var trigger hardware.Trigger
	if cfg.Trigger.Enabled {
		switch cfg.Trigger.Driver {
		case "file", "":
			ft, err := hardware.NewFileTrigger(cfg.Trigger.Path)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("failed to set up trigger: %w", err)
			}
			trigger = ft
		case "gpio":
			gt, err := hardware.OpenGPIOTrigger(cfg.Motor.GPIORoot, cfg.Trigger.GPIOLine)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("failed to set up trigger: %w", err)
			}
			trigger = gt
		default:
			return nil, nil, nil, fmt.Errorf("unknown trigger driver %q", cfg.Trigger.Driver)
		}
	}

	log.Printf("Hardware: camera=%s motor=%s trigger=%v (%s)", cfg.Camera.Driver, cfg.Motor.Driver, cfg.Trigger.Enabled, cfg.Trigger.Driver)
	return camera, motor, trigger, nil
}

// StartBackground starts the scheduled maintenance jobs.
func (a *App) StartBackground() {
	a.scheduler = jobs.StartScheduler(a.store, a.config.History.RetentionDays, a.config.History.PruneIntervalHours)
}

func (a *App) Config() *config.Config       { return a.config }
func (a *App) DB() *sql.DB                  { return a.db }
func (a *App) WsHub() *websocket.Hub        { return a.wsHub }
func (a *App) Images() *imagestore.Store    { return a.images }
func (a *App) Tracker() *progress.Tracker   { return a.tracker }
func (a *App) Controller() *jobs.Controller { return a.controller }
func (a *App) Store() *store.Store          { return a.store }

// Shutdown stops the running job, waiting at most until ctx expires.
func (a *App) Shutdown(ctx context.Context) error {
	if a.controller == nil {
		return nil
	}
	return a.controller.Shutdown(ctx)
}

// Close gracefully closes the application's resources, like the DB connection.
func (a *App) Close() {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.wsHub != nil {
		a.wsHub.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("Warning: error during shutdown: %v", err)
		}
	}
	a.closers = nil
}
