package core

import (
	"slices"
	"time"
)

// ClaimStatus is the editorial lifecycle status of a fact-check claim.
type ClaimStatus string

const (
	ClaimStatusSubmitted ClaimStatus = "submitted"
	ClaimStatusAccepted  ClaimStatus = "accepted"
	ClaimStatusObserved  ClaimStatus = "observed"
	ClaimStatusStale     ClaimStatus = "stale"
	ClaimStatusSpam      ClaimStatus = "spam"
	ClaimStatusRejected  ClaimStatus = "rejected"
	ClaimStatusChecked   ClaimStatus = "checked"
	ClaimStatusPublished ClaimStatus = "published"
)

// ingestableStatuses lists the statuses eligible for import.
var ingestableStatuses = []ClaimStatus{ClaimStatusChecked, ClaimStatusPublished}

// IsIngestable reports whether claims with this status may be imported.
func (s ClaimStatus) IsIngestable() bool {
	return slices.Contains(ingestableStatuses, s)
}

// Claim is a single fact-check document in the export format consumed by imports.
type Claim struct {
	ID              string          `json:"id"`
	Status          ClaimStatus     `json:"status"`
	ShortID         string          `json:"shortId"`
	ProcessID       int64           `json:"processId"`
	Synopsis        *string         `json:"synopsis"`
	RatingLabelName *string         `json:"ratingLabelName"`
	RatingStatement *string         `json:"ratingStatement"`
	RatingSummary   *string         `json:"ratingSummary"`
	CreatedAt       string          `json:"createdAt"`
	Internal        bool            `json:"internal"`
	PublishingURL   *string         `json:"publishingUrl"`
	ClaimCategories []ClaimCategory `json:"claimCategories"`
	Facts           []Fact          `json:"facts"`
}

// ClaimCategory links a claim to a category.
type ClaimCategory struct {
	ID           string        `json:"id,omitempty"`
	CategoryName string        `json:"categoryName"`
	Category     CategoryLabel `json:"category"`
}

// CategoryLabel holds the localized display labels of a category.
type CategoryLabel struct {
	LabelDe string `json:"labelDe"`
	LabelEn string `json:"labelEn"`
}

// Fact is one researched fact backing a claim's verdict.
type Fact struct {
	ID      string   `json:"id"`
	Index   int      `json:"index"`
	Text    string   `json:"text"`
	Publish *bool    `json:"publish,omitempty"`
	Sources []Source `json:"sources"`
}

// Source is evidence attached to a fact.
type Source struct {
	ID      string  `json:"id"`
	Index   int     `json:"index"`
	Excerpt *string `json:"excerpt"`
	URL     *string `json:"url,omitempty"`
	Publish *bool   `json:"publish,omitempty"`
}

// Publishable reports whether the fact may be exposed. An absent flag counts as publishable.
func (f *Fact) Publishable() bool {
	return f.Publish == nil || *f.Publish
}

// Publishable reports whether the source may be exposed. An absent flag counts as publishable.
func (s *Source) Publishable() bool {
	return s.Publish == nil || *s.Publish
}

// CategoryNames returns the category identifiers of the claim in input order.
func (c *Claim) CategoryNames() []string {
	names := make([]string, 0, len(c.ClaimCategories))
	for _, cc := range c.ClaimCategories {
		names = append(names, cc.CategoryName)
	}
	return names
}

// ClaimRecord is the stored representation of a claim.
type ClaimRecord struct {
	ID              string      `json:"id"`
	ExternalID      string      `json:"externalId"`
	ShortID         string      `json:"shortId"`
	ProcessID       int64       `json:"processId"`
	Status          ClaimStatus `json:"status"`
	Synopsis        *string     `json:"synopsis"`
	RatingStatement *string     `json:"ratingStatement"`
	RatingSummary   *string     `json:"ratingSummary"`
	RatingLabel     *string     `json:"ratingLabel"`
	Categories      []string    `json:"categories"`
	PublishingURL   *string     `json:"publishingUrl"`
	PublishingDate  *time.Time  `json:"publishingDate"`
	Internal        bool        `json:"internal"`
	Language        string      `json:"language,omitempty"`
	VersionHash     string      `json:"versionHash"`
	RawData         []byte      `json:"-"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
	LastSyncedAt    time.Time   `json:"lastSyncedAt"`
}

// ChunkType distinguishes the kinds of passages derived from a claim.
type ChunkType string

const (
	ChunkTypeOverview   ChunkType = "overview"
	ChunkTypeFactDetail ChunkType = "fact_detail"
)

// ChunkMetadata mirrors claim fields on each chunk for filtering and display.
type ChunkMetadata struct {
	ClaimID        string    `json:"claimId"`
	ExternalID     string    `json:"externalId"`
	ShortID        string    `json:"shortId"`
	ChunkType      ChunkType `json:"chunkType"`
	FactIndex      *int      `json:"factIndex"`
	RatingLabel    *string   `json:"ratingLabel"`
	Categories     []string  `json:"categories"`
	PublishingDate string    `json:"publishingDate,omitempty"`
	PublishingURL  *string   `json:"publishingUrl"`
	Status         string    `json:"status"`
}

// Chunk is a retrievable passage derived from exactly one claim.
type Chunk struct {
	ID        int64         `json:"id"`
	ClaimID   string        `json:"claimId"`
	Type      ChunkType     `json:"chunkType"`
	FactIndex *int          `json:"factIndex"`
	Content   string        `json:"content"`
	Metadata  ChunkMetadata `json:"metadata"`
	Embedding []float32     `json:"embedding,omitempty"`
}

// ClaimWithChunks is a stored claim together with its chunks, overview first.
type ClaimWithChunks struct {
	Claim  *ClaimRecord `json:"claim"`
	Chunks []Chunk      `json:"chunks"`
}

// ClaimPage is one page of a claim listing.
type ClaimPage struct {
	Data  []*ClaimRecord `json:"data"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
	Pages int            `json:"pages"`
}

// LabelCount is a value with the number of claims carrying it.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Stats aggregates corpus statistics.
type Stats struct {
	Claims struct {
		Total    int            `json:"total"`
		ByStatus map[string]int `json:"byStatus"`
	} `json:"claims"`
	Chunks struct {
		Total    int            `json:"total"`
		ByType   map[string]int `json:"byType"`
		Embedded int            `json:"embedded"`
	} `json:"chunks"`
	RatingLabels []LabelCount `json:"ratingLabels"`
	Categories   []LabelCount `json:"categories"`
}

// JobStatus is the state of an import job.
type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusRunning  JobStatus = "running"
	JobStatusDone     JobStatus = "done"
	JobStatusFailed   JobStatus = "failed"
	JobStatusCanceled JobStatus = "canceled"
)

// IsTerminal reports whether no further transition can occur from s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusDone || s == JobStatusFailed || s == JobStatusCanceled
}

// ImportJob tracks one batch ingestion.
type ImportJob struct {
	ID           string     `json:"id"`
	Status       JobStatus  `json:"status"`
	Source       string     `json:"source"`
	Language     string     `json:"language,omitempty"`
	Total        int        `json:"total"`
	Processed    int        `json:"processed"`
	Skipped      int        `json:"skipped"`
	Errors       int        `json:"errors"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	CanceledAt   *time.Time `json:"canceledAt,omitempty"`
}

// Handled returns the number of documents the job has accounted for.
func (j *ImportJob) Handled() int {
	return j.Processed + j.Skipped + j.Errors
}

// Clone returns a deep copy safe to hand out to other goroutines.
func (j *ImportJob) Clone() *ImportJob {
	c := *j
	c.StartedAt = cloneTime(j.StartedAt)
	c.CompletedAt = cloneTime(j.CompletedAt)
	c.CanceledAt = cloneTime(j.CanceledAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// SearchCandidate is a chunk returned by one or both candidate queries.
type SearchCandidate struct {
	ChunkID  int64
	VecScore *float64
	FtsScore *float64
}

// RankedResult is a candidate annotated with its per-path ranks and fused score.
type RankedResult struct {
	SearchCandidate
	VecRank *int
	FtsRank *int
	Score   float64
}

// SearchResultChunk is a hydrated chunk in a search response.
type SearchResultChunk struct {
	ChunkID    int64         `json:"chunkId"`
	ClaimID    string        `json:"claimId"`
	ExternalID string        `json:"externalId"`
	ShortID    string        `json:"shortId"`
	ChunkType  ChunkType     `json:"chunkType"`
	FactIndex  *int          `json:"factIndex"`
	Content    string        `json:"content"`
	Metadata   ChunkMetadata `json:"metadata"`
	RRFScore   float64       `json:"rrfScore"`
	VecScore   *float64      `json:"vecScore,omitempty"`
	FtsScore   *float64      `json:"ftsScore,omitempty"`
}

// SearchResultClaim groups the retrieved chunks of one claim.
type SearchResultClaim struct {
	ExternalID      string              `json:"externalId"`
	ShortID         string              `json:"shortId"`
	Synopsis        *string             `json:"synopsis"`
	RatingLabel     *string             `json:"ratingLabel"`
	RatingSummary   *string             `json:"ratingSummary"`
	RatingStatement *string             `json:"ratingStatement"`
	Categories      []string            `json:"categories"`
	PublishingURL   *string             `json:"publishingUrl"`
	PublishingDate  *time.Time          `json:"publishingDate"`
	Status          ClaimStatus         `json:"status"`
	Language        string              `json:"language,omitempty"`
	BestScore       float64             `json:"bestScore"`
	Chunks          []SearchResultChunk `json:"chunks"`
}

// SearchResponse is the result of a hybrid search.
type SearchResponse struct {
	Query        string              `json:"query"`
	TotalResults int                 `json:"totalResults"`
	Claims       []SearchResultClaim `json:"claims"`
}

// HydratedChunk is a chunk joined with its parent claim, as needed to build search results.
type HydratedChunk struct {
	Chunk Chunk
	Claim *ClaimRecord
}
