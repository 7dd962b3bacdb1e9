package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vrsandeep/turntable-go/internal/models"
)

var flagHistoryLimit int

func init() {
	fetchCmd.Flags().StringP("output", "o", ".", "Directory (fetch NAME...) or file (fetch --all) to write to")
	fetchCmd.Flags().Bool("all", false, "Download every image as one zip archive")
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "Number of job runs to show")
}

var submitCmd = &cobra.Command{
	Use:   "submit COUNT...",
	Short: "Start a job capturing COUNT images per round",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec := models.JobSpec{Rounds: make([]int, len(args))}
		for i, arg := range args {
			n, err := strconv.Atoi(arg)
			if err != nil {
				return fmt.Errorf("round %d: %q is not a number", i, arg)
			}
			spec.Rounds[i] = n
		}

		var status models.JobStatus
		if err := newClient().submit(cmd.Context(), spec, &status); err != nil {
			return err
		}
		fmt.Printf("job %s started: %d images in %d rounds\n", status.ID, status.Total, len(status.Rounds))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show progress of the current job",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var report models.ProgressReport
		if err := newClient().getJSON(cmd.Context(), "/api/job", &report); err != nil {
			return err
		}
		fmt.Printf("job:      %s\n", orDash(report.JobID))
		fmt.Printf("state:    %s\n", report.State)
		fmt.Printf("position: round %d, image %d\n", report.Round, report.Image)
		fmt.Printf("captured: %d/%d\n", report.Captured, report.Total)
		if report.Message != "" {
			fmt.Printf("message:  %s\n", report.Message)
		}
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel the running job",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var status models.JobStatus
		if err := newClient().delete(cmd.Context(), "/api/job", &status); err != nil {
			return err
		}
		fmt.Printf("job %s: %s\n", orDash(status.ID), status.State)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List captured images",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var paths []string
		if err := newClient().getJSON(cmd.Context(), "/api/images", &paths); err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Println(p)
		}
		return nil
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [NAME...]",
	Short: "Download captured images",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		all, _ := cmd.Flags().GetBool("all")
		c := newClient()

		if all {
			if output == "." {
				output = "images.zip"
			}
			return download(c, cmd, "/api/images.zip", output)
		}
		if len(args) == 0 {
			return fmt.Errorf("name at least one image or pass --all")
		}

		if err := os.MkdirAll(output, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", output, err)
		}
		for _, name := range args {
			name = strings.TrimPrefix(name, "/api/images/")
			if err := download(c, cmd, "/api/images/"+name, filepath.Join(output, filepath.Base(name))); err != nil {
				return err
			}
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [ID]",
	Short: "Show recent job runs, or one run in detail",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			var run models.JobRun
			if err := newClient().getJSON(cmd.Context(), "/api/jobs/history/"+url.PathEscape(args[0]), &run); err != nil {
				return err
			}
			printJobRun(os.Stdout, run)
			return nil
		}

		var runs []models.JobRun
		path := "/api/jobs/history?limit=" + strconv.Itoa(flagHistoryLimit)
		if err := newClient().getJSON(cmd.Context(), path, &runs); err != nil {
			return err
		}
		for _, run := range runs {
			fmt.Printf("%s  %-9s  %3d/%-3d  %s  %v\n",
				run.StartedAt.Local().Format("2006-01-02 15:04:05"),
				run.State, run.Captured, run.Total, run.ID, run.Rounds)
		}
		return nil
	},
}

func download(c *client, cmd *cobra.Command, path, dest string) error {
	body, err := c.get(cmd.Context(), path)
	if err != nil {
		return err
	}
	defer body.Close()

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", dest, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", dest, err)
	}
	fmt.Println(dest)
	return nil
}

func printJobRun(w io.Writer, run models.JobRun) {
	fmt.Fprintf(w, "job:      %s\n", run.ID)
	fmt.Fprintf(w, "state:    %s\n", run.State)
	fmt.Fprintf(w, "rounds:   %v\n", run.Rounds)
	fmt.Fprintf(w, "captured: %d/%d\n", run.Captured, run.Total)
	fmt.Fprintf(w, "started:  %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if run.FinishedAt != nil {
		fmt.Fprintf(w, "finished: %s\n", run.FinishedAt.Local().Format("2006-01-02 15:04:05"))
	}
	if run.Message != "" {
		fmt.Fprintf(w, "message:  %s\n", run.Message)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// apiError is the error body written by the server.
type apiError struct {
	Error string `json:"error"`
}

func decodeAPIError(status int, body io.Reader) error {
	var e apiError
	if err := json.NewDecoder(body).Decode(&e); err != nil || e.Error == "" {
		return fmt.Errorf("server returned status %d", status)
	}
	return fmt.Errorf("server returned status %d: %s", status, e.Error)
}
