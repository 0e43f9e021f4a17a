// Copyright 2025 Faktenforum
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/faktenforum/checkbot-rag/ai"
	"github.com/faktenforum/checkbot-rag/chunking"
	"github.com/faktenforum/checkbot-rag/core"
	"github.com/faktenforum/checkbot-rag/storage"
)

// outcome is the result of importing one claim.
type outcome int

const (
	outcomeImported outcome = iota
	outcomeSkipped
)

// claimProcessor imports a single claim: eligibility, change detection,
// splitting, embedding and the atomic upsert.
type claimProcessor struct {
	claims   storage.ClaimRepository
	splitter *chunking.Splitter
	embedder ai.Embedder
	logger   *slog.Logger
}

func newClaimProcessor(claims storage.ClaimRepository, splitter *chunking.Splitter, embedder ai.Embedder, logger *slog.Logger) *claimProcessor {
	return &claimProcessor{
		claims:   claims,
		splitter: splitter,
		embedder: embedder,
		logger:   logger.With("processor", "claims"),
	}
}

// process imports claim under language. A returned error is scoped to this claim.
func (p *claimProcessor) process(ctx context.Context, claim *core.Claim, language string) (outcome, error) {
	if err := core.ValidateClaim(claim); err != nil {
		return outcomeSkipped, err
	}

	if reason := core.Eligibility(claim); reason != core.SkipNone {
		p.logger.Debug("skipping claim", "claim", claim.ID, "reason", reason)
		return outcomeSkipped, nil
	}

	fingerprint, err := core.Fingerprint(claim)
	if err != nil {
		return outcomeSkipped, err
	}

	state, err := p.claims.GetClaimState(ctx, claim.ID)
	switch {
	case err == nil:
		// A stored claim without chunks was left incomplete; import it again.
		if state.Fingerprint == fingerprint && state.ChunkCount > 0 {
			p.logger.Debug("skipping claim", "claim", claim.ID, "reason", core.SkipUnchanged)
			return outcomeSkipped, nil
		}
	case !errors.Is(err, storage.ErrNotFound):
		return outcomeSkipped, fmt.Errorf("claim %s: %w", claim.ID, err)
	}

	chunks := p.splitter.Split(claim)
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}

	embeddings, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("claim %s: embedding: %w", claim.ID, err)
	}
	if len(embeddings) != len(chunks) {
		return outcomeSkipped, fmt.Errorf("claim %s: %w: got %d, want %d",
			claim.ID, ErrEmbeddingCountMismatch, len(embeddings), len(chunks))
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}

	record, err := newClaimRecord(claim, fingerprint, language)
	if err != nil {
		return outcomeSkipped, err
	}
	if err := p.claims.UpsertClaim(ctx, record, chunks); err != nil {
		return outcomeSkipped, fmt.Errorf("claim %s: %w", claim.ID, err)
	}

	p.logger.Debug("imported claim", "claim", claim.ID, "chunks", len(chunks))
	return outcomeImported, nil
}

// newClaimRecord converts an export claim into its stored form.
// The full export document is kept as the raw payload.
func newClaimRecord(claim *core.Claim, fingerprint, language string) (*core.ClaimRecord, error) {
	raw, err := sonic.Marshal(claim)
	if err != nil {
		return nil, fmt.Errorf("claim %s: encoding raw payload: %w", claim.ID, err)
	}

	return &core.ClaimRecord{
		ExternalID:      claim.ID,
		ShortID:         claim.ShortID,
		ProcessID:       claim.ProcessID,
		Status:          claim.Status,
		Synopsis:        claim.Synopsis,
		RatingStatement: claim.RatingStatement,
		RatingSummary:   claim.RatingSummary,
		RatingLabel:     claim.RatingLabelName,
		Categories:      claim.CategoryNames(),
		PublishingURL:   claim.PublishingURL,
		PublishingDate:  parseTimestamp(claim.CreatedAt),
		Internal:        claim.Internal,
		Language:        language,
		VersionHash:     fingerprint,
		RawData:         raw,
	}, nil
}

// parseTimestamp accepts RFC 3339 timestamps with or without fractional seconds.
func parseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
