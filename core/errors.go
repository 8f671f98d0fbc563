// Copyright 2025 Poiesic Systems
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
	// ErrInvalidFiling indicates a Filing failed validation.
	ErrInvalidFiling = errors.New("invalid filing")

	// ErrEmptyFilingID indicates the FilingID field is empty.
	ErrEmptyFilingID = errors.New("filing id cannot be empty")

	// ErrEmptyTicker indicates the CompanyTicker field is empty.
	ErrEmptyTicker = errors.New("company ticker cannot be empty")

	// ErrInvalidDocumentResult indicates a DocumentResult violates the
	// status invariant.
	ErrInvalidDocumentResult = errors.New("invalid document result")

	// ErrMissingStatusReason indicates a skipped or failed result
	// without a status reason.
	ErrMissingStatusReason = errors.New("status reason required for non-processed result")

	// ErrMissingContent indicates a processed result without hash or text.
	ErrMissingContent = errors.New("processed result requires hash and text")
)
