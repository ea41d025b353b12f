package batch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"

	"github.com/hybriq/hybriq/pkg/models"
)

// questionRecordSchema validates one input line before it reaches the
// orchestrator. A malformed record yields an error result for that line;
// it never aborts the run.
const questionRecordSchema = `{
	"type": "object",
	"required": ["id", "question"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"question": {"type": "string", "minLength": 1},
		"format_hint": {"type": "string"}
	}
}`

// Record is one parsed input line: either a valid question or a
// validation error to report in its place.
type Record struct {
	Question models.Question
	Err      error
}

// ReadQuestions loads newline-delimited JSON question records. Blank lines
// are skipped. Invalid lines come back as Records with Err set, carrying
// whatever id could be salvaged from the raw JSON.
func ReadQuestions(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch input %s: %w", path, err)
	}
	defer file.Close()

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(questionRecordSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile question record schema: %w", err)
	}

	records := []Record{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := scanner.Bytes()
		if len(line) == 0 || isBlank(line) {
			continue
		}

		records = append(records, parseRecord(schema, line, lineNo))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch input %s: %w", path, err)
	}

	return records, nil
}

func parseRecord(schema *gojsonschema.Schema, line []byte, lineNo int) Record {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(line))
	if err != nil {
		return Record{
			Question: models.Question{ID: salvageID(line, lineNo)},
			Err:      fmt.Errorf("line %d is not valid JSON: %w", lineNo, err),
		}
	}

	if !result.Valid() {
		return Record{
			Question: models.Question{ID: salvageID(line, lineNo)},
			Err:      fmt.Errorf("line %d failed validation: %s", lineNo, result.Errors()[0].String()),
		}
	}

	var question models.Question
	if err := json.Unmarshal(line, &question); err != nil {
		return Record{
			Question: models.Question{ID: salvageID(line, lineNo)},
			Err:      fmt.Errorf("line %d failed to decode: %w", lineNo, err),
		}
	}

	if question.FormatHint == "" {
		question.FormatHint = models.FormatStr
	}

	return Record{Question: question}
}

// salvageID pulls the id out of a rejected line when possible, so the
// error result can still be correlated; otherwise the line number stands
// in.
func salvageID(line []byte, lineNo int) string {
	var partial struct {
		ID string `json:"id"`
	}

	if err := json.Unmarshal(line, &partial); err == nil && partial.ID != "" {
		return partial.ID
	}

	return fmt.Sprintf("line-%d", lineNo)
}

func isBlank(line []byte) bool {
	for _, b := range line {
		if b != ' ' && b != '\t' && b != '\r' {
			return false
		}
	}

	return true
}
