package testcase

import (
	"encoding/json"
	"regexp"
	"strings"
)

// TestCase is one extracted scenario from a requirements document.
// Consumed read-only by selection and DSL generation.
type TestCase struct {
	ID       string    `json:"id"`
	Scenario string    `json:"scenario"`
	Steps    []string  `json:"steps"`
	TestData DataHints `json:"test_data"`
	Expected []string  `json:"expected"`
	Tags     []string  `json:"tags"`
}

// Catalog is the memoized set of cases extracted from one document.
type Catalog struct {
	TestCases []TestCase `json:"test_cases"`
}

// DataHints holds the case's own test data. Extraction emits either an object
// or a list of "key: value" lines depending on the document, so both are
// accepted; keys are normalized on access.
type DataHints struct {
	Lines  []string
	Fields map[string]string
}

var dataLineRe = regexp.MustCompile(`^\s*([^:=]+?)\s*[:=]\s*(.+?)\s*$`)

func (d *DataHints) UnmarshalJSON(data []byte) error {
	var fields map[string]string
	if err := json.Unmarshal(data, &fields); err == nil {
		d.Fields = fields
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err == nil {
		d.Lines = lines
		return nil
	}
	// Anything else (null, a bare string) carries no usable hints.
	return nil
}

func (d DataHints) MarshalJSON() ([]byte, error) {
	if d.Fields != nil {
		return json.Marshal(d.Fields)
	}
	return json.Marshal(d.Lines)
}

// Map returns the hints as a normalized key→value map.
func (d DataHints) Map() map[string]string {
	out := make(map[string]string)
	for k, v := range d.Fields {
		out[normalizeKey(k)] = strings.TrimSpace(v)
	}
	for _, line := range d.Lines {
		m := dataLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out[normalizeKey(m[1])] = strings.TrimSpace(m[2])
	}
	return out
}

// Raw returns the hints as prompt-ready lines.
func (d DataHints) Raw() []string {
	if len(d.Lines) > 0 {
		return d.Lines
	}
	var lines []string
	for k, v := range d.Fields {
		lines = append(lines, k+": "+v)
	}
	return lines
}

func normalizeKey(key string) string {
	key = strings.TrimSpace(strings.ToLower(key))
	return strings.Join(strings.Fields(key), "_")
}
