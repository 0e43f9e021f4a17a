package main

import (
	"fmt"
	"io"
	"strings"

	checkbotrag "github.com/faktenforum/checkbot-rag"
	"github.com/faktenforum/checkbot-rag/core"
	"github.com/faktenforum/checkbot-rag/search"
	"github.com/faktenforum/checkbot-rag/storage"
	"github.com/urfave/cli/v2"
)

func withDatabase(c *cli.Context, fn func(*checkbotrag.Database) error) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("a search query is required")
	}

	return withDatabase(c, func(db *checkbotrag.Database) error {
		searcher, err := db.NewSearcher()
		if err != nil {
			return err
		}
		resp, err := searcher.SearchWithMonitor(c.Context, search.Request{
			Query:       query,
			Limit:       c.Int("limit"),
			Categories:  c.StringSlice("category"),
			RatingLabel: c.String("rating-label"),
			ChunkType:   core.ChunkType(c.String("chunk-type")),
			Language:    c.String("language"),
		}, search.NewLogMonitor(nil))
		if err != nil {
			return err
		}
		return render(c, resp, func(w io.Writer) error { return printSearch(w, resp) })
	})
}

func claimCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("a claim id is required")
	}
	return withDatabase(c, func(db *checkbotrag.Database) error {
		claim, err := db.Store().GetClaim(c.Context, id)
		if err != nil {
			return err
		}
		return render(c, claim, func(w io.Writer) error { return printClaim(w, claim) })
	})
}

func claimsCommand(c *cli.Context) error {
	return withDatabase(c, func(db *checkbotrag.Database) error {
		page, err := db.Store().ListClaims(c.Context, storage.ClaimFilter{
			Page:        c.Int("page"),
			Limit:       c.Int("limit"),
			RatingLabel: c.String("rating-label"),
			Category:    c.String("category"),
			Status:      c.String("status"),
		})
		if err != nil {
			return err
		}
		return render(c, page, func(w io.Writer) error { return printClaimPage(w, page) })
	})
}

func statsCommand(c *cli.Context) error {
	return withDatabase(c, func(db *checkbotrag.Database) error {
		stats, err := db.Store().Stats(c.Context)
		if err != nil {
			return err
		}
		return render(c, stats, func(w io.Writer) error { return printStats(w, stats) })
	})
}

func categoriesCommand(c *cli.Context) error {
	return withDatabase(c, func(db *checkbotrag.Database) error {
		counts, err := db.Store().ListCategories(c.Context)
		if err != nil {
			return err
		}
		return render(c, counts, func(w io.Writer) error { return printLabelCounts(w, "CATEGORY", counts) })
	})
}

func ratingLabelsCommand(c *cli.Context) error {
	return withDatabase(c, func(db *checkbotrag.Database) error {
		counts, err := db.Store().ListRatingLabels(c.Context)
		if err != nil {
			return err
		}
		return render(c, counts, func(w io.Writer) error { return printLabelCounts(w, "RATING LABEL", counts) })
	})
}
