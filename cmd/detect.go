package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/spf13/cobra"

	"github.com/oakwood-commons/gridkit/internal/formatter"
	"github.com/oakwood-commons/gridkit/pkg/mode"
	"github.com/oakwood-commons/gridkit/pkg/table"
)

var detectFormat string

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Report the mode, merge strategy and conflicts of a table declaration",
	Long: `Detect classifies a table definition without rows: which sources declare
it, which source wins, the column keys both declare, and the diagnostics a
compile would report.`,
	Example: "  gridkit detect -d posts.yaml\n" +
		"  gridkit detect -d posts.yaml -m posts.markup.yaml --format html > banner.html\n",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if definitionPath == "" && markupPath == "" {
			return errors.New("one of --definition or --markup is required")
		}
		c, err := compileOnce(rootCtx, compileInputs{definition: definitionPath, markup: markupPath})
		if err != nil {
			return err
		}
		return writeDetection(cmd.OutOrStdout(), detectionOf(c), detectFormat, runSettings().NoColor)
	},
}

// detection is what detect reports about one table.
type detection struct {
	Table       string           `json:"table"`
	Mode        mode.TableMode   `json:"mode"`
	Strategy    mode.Strategy    `json:"strategy,omitempty"`
	Conflicts   mode.ConflictSet `json:"conflicts"`
	Columns     []string         `json:"columns"`
	Diagnostics mode.Diagnostics `json:"diagnostics"`
}

func detectionOf(c *table.Contract) detection {
	d := detection{
		Table:       c.Table,
		Mode:        c.Mode,
		Strategy:    c.Strategy,
		Conflicts:   c.Conflicts,
		Columns:     make([]string, 0, len(c.Columns)),
		Diagnostics: c.Diagnostics,
	}
	for _, col := range c.Columns {
		d.Columns = append(d.Columns, col.Key)
	}
	return d
}

func writeDetection(w io.Writer, d detection, format string, noColor bool) error {
	switch format {
	case "", "text":
		var b strings.Builder
		fmt.Fprintf(&b, "table:     %s\n", d.Table)
		fmt.Fprintf(&b, "mode:      %s\n", d.Mode)
		if d.Strategy != "" {
			fmt.Fprintf(&b, "strategy:  %s\n", d.Strategy)
		}
		fmt.Fprintf(&b, "conflicts: %s\n", d.Conflicts)
		fmt.Fprintf(&b, "columns:   %s\n", strings.Join(d.Columns, ", "))
		if s := formatter.RenderDiagnostics(d.Diagnostics, noColor); s != "" {
			b.WriteString("\n" + s)
		}
		_, err := io.WriteString(w, b.String())
		return err
	case "markdown", "md":
		_, err := io.WriteString(w, detectionMarkdown(d))
		return err
	case "html":
		p := parser.NewWithExtensions(parser.CommonExtensions | parser.NoEmptyLineBeforeBlock)
		renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
		_, err := w.Write(markdown.Render(p.Parse([]byte(detectionMarkdown(d))), renderer))
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}
	return fmt.Errorf("unknown --format %q (expected text, markdown, html or json)", format)
}

func detectionMarkdown(d detection) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", d.Table)
	fmt.Fprintf(&b, "- **Mode:** %s\n", d.Mode)
	if d.Strategy != "" {
		fmt.Fprintf(&b, "- **Strategy:** `%s`\n", d.Strategy)
	}
	if len(d.Conflicts) > 0 {
		keys := make([]string, len(d.Conflicts))
		for i, k := range d.Conflicts {
			keys[i] = "`" + k + "`"
		}
		fmt.Fprintf(&b, "- **Conflicts:** %s\n", strings.Join(keys, ", "))
	} else {
		b.WriteString("- **Conflicts:** none\n")
	}
	fmt.Fprintf(&b, "- **Columns:** %s\n", strings.Join(d.Columns, ", "))
	if md := d.Diagnostics.Markdown(); md != "" {
		b.WriteString("\n" + md)
	}
	return b.String()
}

func init() { //nolint:gochecknoinits
	f := detectCmd.Flags()
	f.StringVarP(&definitionPath, "definition", "d", "", "table definition file (YAML, JSON or TOML)")
	f.StringVarP(&markupPath, "markup", "m", "", "markup file; replaces markup declared in the definition")
	f.StringVar(&detectFormat, "format", "text", "report format: text, markdown, html or json")
}
