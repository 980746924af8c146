// Package loader reads the inputs of a compile from files or strings:
// table definitions, row sets, and the current user. Formats are detected
// from content: JWT, JSON, newline-delimited JSON, multi-document YAML,
// TOML, and YAML.
package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrEmptyInput is returned for blank input.
var ErrEmptyInput = errors.New("empty input")

// Format is a detected input format.
type Format string

// Formats.
const (
	FormatJWT    Format = "jwt"
	FormatJSON   Format = "json"
	FormatNDJSON Format = "ndjson"
	FormatYAML   Format = "yaml"
	FormatTOML   Format = "toml"
)

// Detect guesses the format of input. Multi-document YAML is reported as
// YAML.
func Detect(input string) Format {
	input = strings.TrimSpace(input)
	switch {
	case IsJWT(input):
		return FormatJWT
	case strings.HasPrefix(input, "---") || strings.Contains(input, "\n---"):
		return FormatYAML
	case (strings.HasPrefix(input, "{") || strings.HasPrefix(input, "[")) && json.Valid([]byte(input)):
		return FormatJSON
	case isLikelyNDJSON(strings.Split(input, "\n")):
		return FormatNDJSON
	case isLikelyTOML(input):
		// [section] headers look like JSON arrays, so TOML is checked first.
		return FormatTOML
	case strings.HasPrefix(input, "{") || strings.HasPrefix(input, "["):
		return FormatJSON
	}
	return FormatYAML
}

// Parse decodes input into its documents. Single-document formats yield
// one element; NDJSON yields one per line and multi-document YAML one per
// document.
func Parse(input string) ([]any, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}
	return parseAs(Detect(input), input)
}

func parseAs(f Format, input string) ([]any, error) {
	switch f {
	case FormatJWT:
		claims, err := DecodeJWT(input)
		if err != nil {
			return nil, err
		}
		return []any{claims}, nil
	case FormatNDJSON:
		return parseNDJSON(input)
	case FormatTOML:
		var doc any
		if err := toml.Unmarshal([]byte(input), &doc); err != nil {
			return nil, fmt.Errorf("invalid TOML: %w", err)
		}
		return []any{doc}, nil
	case FormatJSON:
		var doc any
		if err := json.Unmarshal([]byte(input), &doc); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return []any{doc}, nil
	}
	return parseYAML(input)
}

// ParseRoot decodes input into one value. Multi-document input becomes a
// slice of its documents.
func ParseRoot(input string) (any, error) {
	docs, err := Parse(input)
	if err != nil {
		return nil, err
	}
	if len(docs) == 1 {
		return docs[0], nil
	}
	return docs, nil
}

var extensions = map[string]Format{
	".json":   FormatJSON,
	".ndjson": FormatNDJSON,
	".jsonl":  FormatNDJSON,
	".yaml":   FormatYAML,
	".yml":    FormatYAML,
	".toml":   FormatTOML,
	".jwt":    FormatJWT,
}

// ReadFile reads path and decodes it into one value. A known extension is
// tried first; content detection is the fallback. "-" reads stdin.
func ReadFile(path string) (any, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	input := strings.TrimSpace(string(data))
	if input == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyInput)
	}
	if f, ok := extensions[strings.ToLower(filepath.Ext(path))]; ok {
		if docs, err := parseAs(f, input); err == nil {
			return root(docs), nil
		}
	}
	docs, err := parseAs(Detect(input), input)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return root(docs), nil
}

func root(docs []any) any {
	if len(docs) == 1 {
		return docs[0]
	}
	return docs
}

func parseYAML(input string) ([]any, error) {
	dec := yaml.NewDecoder(strings.NewReader(input))
	var docs []any
	for {
		var doc any
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
		if doc != nil {
			docs = append(docs, doc)
		}
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no YAML documents: %w", ErrEmptyInput)
	}
	return docs, nil
}

// parseNDJSON decodes one JSON value per line. Lines that are not JSON are
// kept as strings.
func parseNDJSON(input string) ([]any, error) {
	lines := strings.Split(input, "\n")
	out := make([]any, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(line), &v); err != nil {
			out = append(out, line)
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, ErrEmptyInput
	}
	return out, nil
}

// isLikelyNDJSON requires several lines, most of them opening a JSON object
// or array. YAML lists of bare items must not match.
func isLikelyNDJSON(lines []string) bool {
	var jsonLines, nonEmpty int
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		nonEmpty++
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			jsonLines++
		}
	}
	return nonEmpty > 1 && jsonLines > nonEmpty/2
}

var (
	tomlKey     = `(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+')`
	tomlSection = regexp.MustCompile(`^\[{1,2}` + tomlKey + `(?:\.` + tomlKey + `)*\]{1,2}\s*$`)
	tomlAssign  = regexp.MustCompile(`^` + tomlKey + `(?:\.` + tomlKey + `)*\s*=\s*.+$`)
)

// isLikelyTOML looks for unindented [section] headers or a majority of
// key = value lines. Indented brackets belong to YAML block scalars.
func isLikelyTOML(input string) bool {
	var sections, assigns, nonEmpty int
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		nonEmpty++
		if tomlSection.MatchString(line) {
			sections++
		}
		if tomlAssign.MatchString(trimmed) {
			assigns++
		}
	}
	return sections > 0 || (nonEmpty > 0 && assigns > nonEmpty/2)
}
