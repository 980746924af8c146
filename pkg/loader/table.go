package loader

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/gridkit/pkg/authz"
	"github.com/oakwood-commons/gridkit/pkg/markup"
	"github.com/oakwood-commons/gridkit/pkg/table"
)

// ErrNotRows is returned when a document holds no row list.
var ErrNotRows = errors.New("document does not hold rows")

// rowKeys are the wrapper keys a row list may sit under.
var rowKeys = []string{"rows", "data", "items"}

// ReadDefinition reads a table definition file.
func ReadDefinition(path string) (*table.Definition, error) {
	doc, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	def, err := DecodeDefinition(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// ParseDefinition decodes a table definition in any supported format.
func ParseDefinition(input string) (*table.Definition, error) {
	doc, err := ParseRoot(input)
	if err != nil {
		return nil, err
	}
	return DecodeDefinition(doc)
}

// DecodeDefinition converts parsed data into a definition. A bare list is
// read as markup.
func DecodeDefinition(doc any) (*table.Definition, error) {
	if list, ok := doc.([]any); ok {
		doc = map[string]any{"markup": list}
	}
	if _, ok := doc.(map[string]any); !ok {
		return nil, fmt.Errorf("table definition must be a mapping, got %T", doc)
	}
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var def table.Definition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("invalid table definition: %w", err)
	}
	return &def, nil
}

// ReadMarkup reads a markup file and attaches it to def, replacing any
// markup the definition declared.
func ReadMarkup(def *table.Definition, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	nodes, err := markup.Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	def.Markup = nodes
	return nil
}

// ReadRows reads a row set.
func ReadRows(path string) ([]any, error) {
	doc, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	rows, err := Rows(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// Rows extracts a row list from parsed data: a list, a mapping holding a
// list under rows, data or items, or a single mapping as one row.
func Rows(doc any) ([]any, error) {
	switch t := doc.(type) {
	case []any:
		return t, nil
	case map[string]any:
		for _, k := range rowKeys {
			if list, ok := t[k].([]any); ok {
				return list, nil
			}
		}
		return []any{t}, nil
	case nil:
		return []any{}, nil
	}
	return nil, fmt.Errorf("%w: got %T", ErrNotRows, doc)
}

// ReadUser reads the current user from a file, or from the value itself
// when it is a token.
func ReadUser(pathOrToken string) (authz.Permissions, error) {
	if IsJWT(pathOrToken) {
		return ParseUser(pathOrToken)
	}
	data, err := os.ReadFile(pathOrToken)
	if err != nil {
		return authz.Permissions{}, err
	}
	return ParseUser(string(data))
}

// ParseUser decodes the current user. A token or a claims mapping goes
// through authz.FromClaims; a mapping with userPermissions or isSuperAdmin
// is read as permissions directly.
func ParseUser(input string) (authz.Permissions, error) {
	input = strings.TrimSpace(input)
	if IsJWT(input) {
		claims, err := Claims(input)
		if err != nil {
			return authz.Permissions{}, err
		}
		return authz.FromClaims(claims), nil
	}
	doc, err := ParseRoot(input)
	if err != nil {
		return authz.Permissions{}, err
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return authz.Permissions{}, fmt.Errorf("user must be a mapping, got %T", doc)
	}
	_, hasPerms := m["userPermissions"]
	_, hasAdmin := m["isSuperAdmin"]
	if !hasPerms && !hasAdmin {
		return authz.FromClaims(m), nil
	}
	raw, err := yaml.Marshal(m)
	if err != nil {
		return authz.Permissions{}, err
	}
	var p authz.Permissions
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return authz.Permissions{}, fmt.Errorf("invalid user: %w", err)
	}
	return p, nil
}
