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

import "errors"

// Domain validation errors
var (
	// ErrInvalidJobID indicates a job identifier that is not a UUID.
	ErrInvalidJobID = errors.New("invalid job id")

	// ErrInvalidClaim indicates a Claim failed validation.
	ErrInvalidClaim = errors.New("invalid claim")

	// ErrEmptyClaimID indicates the claim id field is empty.
	ErrEmptyClaimID = errors.New("claim id cannot be empty")

	// ErrUnsupportedLanguage indicates a language code with no known mapping.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrAutoLanguage is returned when automatic language detection is requested.
	ErrAutoLanguage = errors.New("search language 'auto' is not supported yet; please pass an explicit language code")
)
