package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/faktenforum/checkbot-rag/core"
	"github.com/faktenforum/checkbot-rag/ingestion"
	"github.com/urfave/cli/v2"
)

var errNoClaimArray = errors.New("file must contain a JSON array of claims")

// readClaims decodes a claims export. The file must hold a JSON array.
func readClaims(path string) ([]*core.Claim, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var claims []*core.Claim
	if err := sonic.Unmarshal(data, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", errNoClaimArray, err)
	}
	if claims == nil {
		return nil, errNoClaimArray
	}
	return claims, nil
}

func importCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("a claims file is required")
	}
	poll := c.Duration("poll")
	if poll <= 0 {
		return fmt.Errorf("poll must be greater than 0")
	}

	claims, err := readClaims(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	source := c.String("source")
	if source == "" {
		source = filepath.Base(path)
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	importer, err := db.NewImporter()
	if err != nil {
		return err
	}
	defer importer.Release()

	if _, err := importer.RecoverInterrupted(c.Context, 0); err != nil {
		return fmt.Errorf("failed to recover interrupted jobs: %w", err)
	}

	jobID, err := importer.Submit(c.Context, claims, source, &ingestion.SubmitOptions{Language: c.String("language")})
	if err != nil {
		return fmt.Errorf("failed to start import: %w", err)
	}
	fmt.Fprintf(c.App.ErrWriter, "Import job %s started for %d claims\n", jobID, len(claims))

	job, err := awaitJob(c.Context, importer, jobID, poll, c.App.ErrWriter)
	if err != nil {
		return err
	}
	if err := render(c, job, func(w io.Writer) error { return printJob(w, job) }); err != nil {
		return err
	}
	if job.Status == core.JobStatusFailed {
		return cli.Exit(fmt.Sprintf("import failed: %s", job.ErrorMessage), 1)
	}
	return nil
}

// awaitJob reports progress until the job is terminal. An interrupt or
// termination signal cancels the job and waits for it to stop.
func awaitJob(ctx context.Context, importer *ingestion.Importer, jobID string, poll time.Duration, progress io.Writer) (*core.ImportJob, error) {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		importer.Wait(context.Background(), jobID)
	}()

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	reported := false
	for {
		select {
		case <-done:
			if reported {
				fmt.Fprintln(progress)
			}
			return importer.Status(ctx, jobID)
		case <-ticker.C:
			job, err := importer.Status(ctx, jobID)
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(progress, "\rProgress: %d/%d (imported %d, skipped %d, errors %d)",
				job.Handled(), job.Total, job.Processed, job.Skipped, job.Errors)
			reported = true
		case <-sigCtx.Done():
			stop()
			fmt.Fprintln(progress, "\nCanceling import job...")
			if _, err := importer.Cancel(context.Background(), jobID); err != nil {
				return nil, fmt.Errorf("failed to cancel job: %w", err)
			}
			<-done
			return importer.Status(context.Background(), jobID)
		}
	}
}
