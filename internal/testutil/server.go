// Shared test setup for the app and API server.

package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/vrsandeep/turntable-go/internal/api"
	"github.com/vrsandeep/turntable-go/internal/config"
	"github.com/vrsandeep/turntable-go/internal/core"
)

// TestConfig returns a configuration using simulated hardware with no
// pulse delays, an in-memory database and a temporary image directory.
func TestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Database.Path = ":memory:"
	cfg.Images.Path = filepath.Join(t.TempDir(), "images")
	cfg.Camera.Driver = "sim"
	cfg.Camera.Width = 16
	cfg.Camera.Height = 12
	cfg.Motor.Driver = "sim"
	cfg.Motor.StepsPerRotation = 200
	return cfg
}

// SetupTestApp builds a core.App from cfg and tears it down after the test.
func SetupTestApp(t *testing.T, cfg *config.Config) *core.App {
	t.Helper()
	app, err := core.NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("Failed to set up app: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.Shutdown(ctx); err != nil {
			t.Errorf("Failed to stop running job: %v", err)
		}
		app.Close()
	})
	return app
}

// SetupTestServer initializes a full core.App and api.Server for integration testing.
func SetupTestServer(t *testing.T) (*api.Server, *core.App) {
	t.Helper()
	app := SetupTestApp(t, TestConfig(t))
	return api.NewServer(app), app
}

// WaitForJob blocks until the current job reaches a terminal state.
func WaitForJob(t *testing.T, app *core.App) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !app.Controller().Status().Done() {
		if time.Now().After(deadline) {
			t.Fatalf("Job did not finish in time, status: %+v", app.Controller().Status())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
