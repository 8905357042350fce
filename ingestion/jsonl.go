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


package ingestion

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/poiesic/pairfinder/core"
)

// maxLineSize bounds a single JSONL record.
const maxLineSize = 4 << 20

// Record is one line of an import file. Column names follow the trans_agent table.
type Record struct {
	GLNumber      string `json:"gl_number,omitempty"`
	RowNumber     string `json:"row_number,omitempty"`
	Version       string `json:"version,omitempty"`
	EffectiveDate string `json:"effective_date,omitempty"`
	EnglishText   string `json:"english_text"`
	ChineseText   string `json:"chinese_text"`
}

// Pair converts the record to an unsaved pair with trimmed texts.
func (r *Record) Pair() *core.TranslationPair {
	return &core.TranslationPair{
		GLNumber:      strings.TrimSpace(r.GLNumber),
		RowNumber:     strings.TrimSpace(r.RowNumber),
		Version:       strings.TrimSpace(r.Version),
		EffectiveDate: strings.TrimSpace(r.EffectiveDate),
		EnglishText:   strings.TrimSpace(r.EnglishText),
		ChineseText:   strings.TrimSpace(r.ChineseText),
	}
}

// ReadJSONL reads one Record per line. Blank lines are skipped.
// Malformed lines fail the whole read with the line number.
func ReadJSONL(r io.Reader) ([]*core.TranslationPair, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var pairs []*core.TranslationPair
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		pairs = append(pairs, rec.Pair())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", line+1, err)
	}
	return pairs, nil
}
