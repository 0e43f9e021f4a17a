package main

import (
	"fmt"
	"io"

	"github.com/faktenforum/checkbot-rag/ingestion"
	"github.com/urfave/cli/v2"
)

// withImporter opens the database and an importer for the duration of fn.
func withImporter(c *cli.Context, fn func(*ingestion.Importer) error) error {
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

	return fn(importer)
}

func jobIDArg(c *cli.Context) (string, error) {
	id := c.Args().First()
	if id == "" {
		return "", fmt.Errorf("a job id is required")
	}
	return id, nil
}

func jobsListCommand(c *cli.Context) error {
	return withImporter(c, func(importer *ingestion.Importer) error {
		jobs, err := importer.List(c.Context, c.Int("limit"))
		if err != nil {
			return err
		}
		return render(c, jobs, func(w io.Writer) error { return printJobs(w, jobs) })
	})
}

func jobsStatusCommand(c *cli.Context) error {
	id, err := jobIDArg(c)
	if err != nil {
		return err
	}
	return withImporter(c, func(importer *ingestion.Importer) error {
		job, err := importer.Status(c.Context, id)
		if err != nil {
			return err
		}
		return render(c, job, func(w io.Writer) error { return printJob(w, job) })
	})
}

func jobsCancelCommand(c *cli.Context) error {
	id, err := jobIDArg(c)
	if err != nil {
		return err
	}
	return withImporter(c, func(importer *ingestion.Importer) error {
		job, err := importer.Cancel(c.Context, id)
		if err != nil {
			return err
		}
		return render(c, job, func(w io.Writer) error { return printJob(w, job) })
	})
}

func jobsDeleteCommand(c *cli.Context) error {
	id, err := jobIDArg(c)
	if err != nil {
		return err
	}
	return withImporter(c, func(importer *ingestion.Importer) error {
		if err := importer.Delete(c.Context, id); err != nil {
			return err
		}
		result := map[string]any{"id": id, "deleted": true}
		return render(c, result, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "Deleted job %s\n", id)
			return err
		})
	})
}

func jobsRecoverCommand(c *cli.Context) error {
	return withImporter(c, func(importer *ingestion.Importer) error {
		n, err := importer.RecoverInterrupted(c.Context, c.Duration("stale-after"))
		if err != nil {
			return err
		}
		result := map[string]any{"recovered": n}
		return render(c, result, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "Marked %d interrupted jobs as failed\n", n)
			return err
		})
	})
}
