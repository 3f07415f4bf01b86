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


package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned for file extensions without a loader.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrEmptyDocument is returned when a file yields no extractable text.
	ErrEmptyDocument = errors.New("no extractable text")
)

// ExtractionError reports a failed extraction for a specific file.
// Extraction errors are fatal for the ingestion call that caused them and
// guarantee no partial writes occurred.
type ExtractionError struct {
	FileName string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %q: %v", e.FileName, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
