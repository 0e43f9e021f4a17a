package core

import (
	"encoding/hex"

	"github.com/bytedance/sonic"
	"github.com/go-crypt/x/blake2b"
)

const fingerprintSize = 16

// fingerprintFact is the identity-relevant projection of a Fact.
type fingerprintFact struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Sources []string `json:"sources"`
}

// fingerprintClaim is the identity-relevant projection of a Claim.
// Field order is fixed so the encoding is stable.
type fingerprintClaim struct {
	ID              string            `json:"id"`
	Status          ClaimStatus       `json:"status"`
	Synopsis        *string           `json:"synopsis"`
	RatingLabelName *string           `json:"ratingLabelName"`
	RatingStatement *string           `json:"ratingStatement"`
	RatingSummary   *string           `json:"ratingSummary"`
	Facts           []fingerprintFact `json:"facts"`
}

// Fingerprint returns a hex BLAKE2b digest over the fields that determine
// whether a stored claim must be re-imported.
func Fingerprint(claim *Claim) (string, error) {
	stable := fingerprintClaim{
		ID:              claim.ID,
		Status:          claim.Status,
		Synopsis:        claim.Synopsis,
		RatingLabelName: claim.RatingLabelName,
		RatingStatement: claim.RatingStatement,
		RatingSummary:   claim.RatingSummary,
		Facts:           make([]fingerprintFact, 0, len(claim.Facts)),
	}
	for _, f := range claim.Facts {
		sources := make([]string, 0, len(f.Sources))
		for _, s := range f.Sources {
			sources = append(sources, s.ID)
		}
		stable.Facts = append(stable.Facts, fingerprintFact{ID: f.ID, Text: f.Text, Sources: sources})
	}

	encoded, err := sonic.ConfigStd.Marshal(&stable)
	if err != nil {
		return "", err
	}

	h, err := blake2b.New(fingerprintSize, nil)
	if err != nil {
		return "", err
	}
	h.Write(encoded)
	return hex.EncodeToString(h.Sum(nil)), nil
}
