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
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// CSVLoader renders each data row as "column: value" lines, with rows
// separated by a blank line so the splitter keeps rows together.
type CSVLoader struct{}

// Load implements Loader.
func (CSVLoader) Load(_ context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidContent, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var rows []string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidContent, err)
		}
		var b strings.Builder
		for i, value := range record {
			column := fmt.Sprintf("column%d", i+1)
			if i < len(header) && header[i] != "" {
				column = header[i]
			}
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(column)
			b.WriteString(": ")
			b.WriteString(strings.TrimSpace(value))
		}
		rows = append(rows, b.String())
	}
	return strings.Join(rows, "\n\n"), nil
}
