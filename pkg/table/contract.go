package table

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/gridkit/pkg/action"
	"github.com/oakwood-commons/gridkit/pkg/column"
	"github.com/oakwood-commons/gridkit/pkg/filter"
	"github.com/oakwood-commons/gridkit/pkg/mode"
	"github.com/oakwood-commons/gridkit/pkg/query"
	"github.com/oakwood-commons/gridkit/pkg/value"
)

// Contract is the compiled, serializable table. Hidden columns, filters
// and actions are absent rather than flagged.
type Contract struct {
	Table    string            `json:"table" yaml:"table"`
	RenderID string            `json:"renderId" yaml:"renderId"`
	Mode     mode.TableMode    `json:"mode" yaml:"mode"`
	Strategy mode.Strategy     `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	// Conflicts lists the column keys declared by both sources.
	Conflicts   mode.ConflictSet  `json:"conflicts" yaml:"conflicts"`
	Resolutions []mode.Resolution `json:"resolutions,omitempty" yaml:"resolutions,omitempty"`

	Columns       []column.Descriptor `json:"columns" yaml:"columns"`
	Filters       []filter.Descriptor `json:"filters" yaml:"filters"`
	BulkActions   []action.Resolved   `json:"bulkActions" yaml:"bulkActions"`
	HeaderActions []action.Resolved   `json:"headerActions" yaml:"headerActions"`
	Rows          []Row               `json:"rows" yaml:"rows"`

	Query          query.Query      `json:"query" yaml:"query"`
	AppliedFilters []string         `json:"appliedFilters" yaml:"appliedFilters"`
	Sort           *Sort            `json:"sort,omitempty" yaml:"sort,omitempty"`
	Diagnostics    mode.Diagnostics `json:"diagnostics" yaml:"diagnostics"`
}

// Row is one formatted row. Actions is set only when no actions column
// hosts them.
type Row struct {
	ID      any                    `json:"id" yaml:"id"`
	Cells   map[string]value.Value `json:"cells" yaml:"cells"`
	Actions []action.Resolved      `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// Sort is the ordering that took effect.
type Sort struct {
	Column    string `json:"column" yaml:"column"`
	Direction string `json:"direction" yaml:"direction"`
}

// Format is a contract encoding.
type Format string

// Formats.
const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatMsgpack Format = "msgpack"
)

// Formats lists the supported encodings.
var Formats = []Format{FormatJSON, FormatYAML, FormatMsgpack}

// ErrUnknownFormat is returned for an unsupported encoding.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat validates a format name. The empty string is JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	case FormatMsgpack:
		return FormatMsgpack, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Encode writes c to w. Msgpack uses the JSON field names.
func (c *Contract) Encode(w io.Writer, f Format) error {
	switch f {
	case "", FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(c)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return err
		}
		return enc.Close()
	case FormatMsgpack:
		enc := msgpack.NewEncoder(w)
		enc.SetCustomStructTag("json")
		enc.SetSortMapKeys(true)
		return enc.Encode(c)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Data returns the contract as generic maps and slices, as a client
// decoding the JSON encoding would see it.
func (c *Contract) Data() (map[string]any, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Cell returns the plain display value of a cell: a payload's label,
// formatted text or value, or the raw value.
func Cell(v value.Value) any {
	switch t := v.(type) {
	case value.Payload:
		for _, k := range []string{"label", "formatted", "title", "summary", "value"} {
			if x, ok := t.Get(k); ok && x != nil && x != "" {
				return x
			}
		}
		return t.String()
	case value.Raw:
		return t.V
	}
	return nil
}
