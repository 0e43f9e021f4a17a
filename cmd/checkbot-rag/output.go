package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bytedance/sonic"
	"github.com/faktenforum/checkbot-rag/core"
	"github.com/urfave/cli/v2"
)

// render prints v as JSON when --json is set and through text otherwise.
func render(c *cli.Context, v any, text func(w io.Writer) error) error {
	if c.Bool("json") {
		data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.App.Writer, string(data))
		return err
	}
	return text(c.App.Writer)
}

func table(w io.Writer, header string, rows func(tw io.Writer)) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	rows(tw)
	return tw.Flush()
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

func printJob(w io.Writer, job *core.ImportJob) error {
	return table(w, "FIELD\tVALUE", func(tw io.Writer) {
		fmt.Fprintf(tw, "id\t%s\n", job.ID)
		fmt.Fprintf(tw, "status\t%s\n", job.Status)
		fmt.Fprintf(tw, "source\t%s\n", job.Source)
		fmt.Fprintf(tw, "language\t%s\n", job.Language)
		fmt.Fprintf(tw, "progress\t%d/%d\n", job.Handled(), job.Total)
		fmt.Fprintf(tw, "imported\t%d\n", job.Processed)
		fmt.Fprintf(tw, "skipped\t%d\n", job.Skipped)
		fmt.Fprintf(tw, "errors\t%d\n", job.Errors)
		if job.ErrorMessage != "" {
			fmt.Fprintf(tw, "error\t%s\n", job.ErrorMessage)
		}
		fmt.Fprintf(tw, "created\t%s\n", formatTime(&job.CreatedAt))
		fmt.Fprintf(tw, "started\t%s\n", formatTime(job.StartedAt))
		fmt.Fprintf(tw, "completed\t%s\n", formatTime(job.CompletedAt))
		if job.CanceledAt != nil {
			fmt.Fprintf(tw, "canceled\t%s\n", formatTime(job.CanceledAt))
		}
	})
}

func printJobs(w io.Writer, jobs []*core.ImportJob) error {
	return table(w, "ID\tSTATUS\tSOURCE\tPROGRESS\tIMPORTED\tSKIPPED\tERRORS\tCREATED", func(tw io.Writer) {
		for _, job := range jobs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%d\t%d\t%d\t%s\n",
				job.ID, job.Status, job.Source, job.Handled(), job.Total,
				job.Processed, job.Skipped, job.Errors, formatTime(&job.CreatedAt))
		}
	})
}

func printSearch(w io.Writer, resp *core.SearchResponse) error {
	if len(resp.Claims) == 0 {
		_, err := fmt.Fprintf(w, "No results for %q\n", resp.Query)
		return err
	}
	fmt.Fprintf(w, "%d claims for %q\n\n", resp.TotalResults, resp.Query)
	for i, claim := range resp.Claims {
		fmt.Fprintf(w, "%d. [%s] %s  (score %.4f)\n", i+1, deref(claim.RatingLabel), deref(claim.Synopsis), claim.BestScore)
		fmt.Fprintf(w, "   id: %s  short: %s\n", claim.ExternalID, claim.ShortID)
		for _, chunk := range claim.Chunks {
			fmt.Fprintf(w, "   - %s %.4f: %s\n", chunk.ChunkType, chunk.RRFScore, snippet(chunk.Content, 160))
		}
		fmt.Fprintln(w)
	}
	return nil
}

func printClaim(w io.Writer, claim *core.ClaimWithChunks) error {
	r := claim.Claim
	err := table(w, "FIELD\tVALUE", func(tw io.Writer) {
		fmt.Fprintf(tw, "external id\t%s\n", r.ExternalID)
		fmt.Fprintf(tw, "short id\t%s\n", r.ShortID)
		fmt.Fprintf(tw, "status\t%s\n", r.Status)
		fmt.Fprintf(tw, "rating\t%s\n", deref(r.RatingLabel))
		fmt.Fprintf(tw, "categories\t%s\n", strings.Join(r.Categories, ", "))
		fmt.Fprintf(tw, "synopsis\t%s\n", deref(r.Synopsis))
		fmt.Fprintf(tw, "url\t%s\n", deref(r.PublishingURL))
		fmt.Fprintf(tw, "published\t%s\n", formatTime(r.PublishingDate))
		fmt.Fprintf(tw, "updated\t%s\n", formatTime(&r.UpdatedAt))
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d chunks\n", len(claim.Chunks))
	for _, chunk := range claim.Chunks {
		label := string(chunk.Type)
		if chunk.FactIndex != nil {
			label = fmt.Sprintf("%s #%d", label, *chunk.FactIndex)
		}
		fmt.Fprintf(w, "- %s: %s\n", label, snippet(chunk.Content, 160))
	}
	return nil
}

func printClaimPage(w io.Writer, page *core.ClaimPage) error {
	fmt.Fprintf(w, "page %d of %d (%d claims)\n", page.Page, page.Pages, page.Total)
	return table(w, "EXTERNAL ID\tSHORT ID\tSTATUS\tRATING\tSYNOPSIS", func(tw io.Writer) {
		for _, r := range page.Data {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ExternalID, r.ShortID, r.Status, deref(r.RatingLabel), snippet(deref(r.Synopsis), 60))
		}
	})
}

func printLabelCounts(w io.Writer, header string, counts []core.LabelCount) error {
	return table(w, header+"\tCLAIMS", func(tw io.Writer) {
		for _, lc := range counts {
			fmt.Fprintf(tw, "%s\t%d\n", lc.Label, lc.Count)
		}
	})
}

func printStats(w io.Writer, stats *core.Stats) error {
	fmt.Fprintf(w, "claims: %d\n", stats.Claims.Total)
	for status, n := range stats.Claims.ByStatus {
		fmt.Fprintf(w, "  %s: %d\n", status, n)
	}
	fmt.Fprintf(w, "chunks: %d (%d embedded)\n", stats.Chunks.Total, stats.Chunks.Embedded)
	for chunkType, n := range stats.Chunks.ByType {
		fmt.Fprintf(w, "  %s: %d\n", chunkType, n)
	}
	fmt.Fprintln(w)
	if err := printLabelCounts(w, "RATING LABEL", stats.RatingLabels); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return printLabelCounts(w, "CATEGORY", stats.Categories)
}

// snippet shortens s to at most n runes on one line.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
