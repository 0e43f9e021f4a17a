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

package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// SkipReason explains why a claim is not imported.
type SkipReason string

const (
	SkipNone       SkipReason = ""
	SkipInternal   SkipReason = "internal"
	SkipStatus     SkipReason = "status"
	SkipNoSynopsis SkipReason = "no synopsis"
	SkipUnchanged  SkipReason = "unchanged"
)

// ValidateJobID checks that id is a well-formed job identifier.
func ValidateJobID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidJobID, id)
	}
	return nil
}

// ValidateClaim validates a Claim according to domain rules.
//
// Validation rules:
//   - claim must not be nil
//   - ID must not be empty
//
// NOT validated (handled by eligibility):
//   - Status, Internal, Synopsis
func ValidateClaim(claim *Claim) error {
	if claim == nil {
		return fmt.Errorf("%w: claim is nil", ErrInvalidClaim)
	}
	if strings.TrimSpace(claim.ID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidClaim, ErrEmptyClaimID)
	}
	return nil
}

// Eligibility reports whether a claim may be imported and, if not, why.
// Only public claims with status checked or published and a synopsis qualify.
func Eligibility(claim *Claim) SkipReason {
	switch {
	case claim.Internal:
		return SkipInternal
	case !claim.Status.IsIngestable():
		return SkipStatus
	case claim.Synopsis == nil || *claim.Synopsis == "":
		return SkipNoSynopsis
	}
	return SkipNone
}
