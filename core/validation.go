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

import "fmt"

// ValidateFiling checks that a filing carries the fields every record
// must have before it can be persisted.
func (f *Filing) ValidateFiling() error {
	if f.FilingID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidFiling, ErrEmptyFilingID)
	}
	if f.CompanyTicker == "" {
		return fmt.Errorf("%w: %w", ErrInvalidFiling, ErrEmptyTicker)
	}
	return nil
}

// Validate enforces the document status invariant: a processed result
// always has a content hash and text; a skipped or failed result always
// has a status reason and no other document-derived content.
func (r *DocumentResult) Validate() error {
	switch r.Status {
	case DocStatusProcessed:
		if r.Hash == "" || r.Text == "" {
			return fmt.Errorf("%w: %w", ErrInvalidDocumentResult, ErrMissingContent)
		}
		if r.StatusReason != "" {
			return fmt.Errorf("%w: processed result must not carry a status reason", ErrInvalidDocumentResult)
		}
	case DocStatusSkipped, DocStatusFailed:
		if r.StatusReason == "" {
			return fmt.Errorf("%w: %w", ErrInvalidDocumentResult, ErrMissingStatusReason)
		}
		if r.Hash != "" || r.Text != "" || len(r.Tables) > 0 {
			return fmt.Errorf("%w: non-processed result must not carry content", ErrInvalidDocumentResult)
		}
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidDocumentResult, r.Status)
	}
	return nil
}
