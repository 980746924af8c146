package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/gridkit/internal/limiter"
	"github.com/oakwood-commons/gridkit/internal/preview"
	"github.com/oakwood-commons/gridkit/pkg/loader"
	"github.com/oakwood-commons/gridkit/pkg/logger"
	"github.com/oakwood-commons/gridkit/pkg/table"
)

// outputTable renders the contract for a terminal instead of encoding it.
const outputTable = "table"

// errBlocking is returned after a strict-merge refusal has been reported.
var errBlocking = errors.New("table configuration error: conflicting declarations under strict-merge")

var (
	definitionPath string
	markupPath     string
	rowsPath       string
	userInput      string
	filterFlags    []string
	sortKey        string
	sortDir        string
	selectedIDs    []string
	outputFormat   string
	interactive    bool
	watch          bool
	expandRows     bool
	noQuery        bool
	showActions    bool
	rowNumbers     string
	outputWidth    int
	limitFlag      int
	offsetFlag     int
	tailFlag       int
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile a table declaration and rows into a render contract",
	Long: `Compile reads a table definition (props configuration, markup, or both) and
a row set, resolves the active mode, reconciles the two sources, formats every
cell and action for the current user, and writes the render contract.

Rows may come from JSON, NDJSON, YAML or TOML; "-" reads stdin. The user is a
claims file, a permissions file, or a JWT given inline.`,
	Example: "  gridkit compile -d posts.yaml -r posts.json\n" +
		"  gridkit compile -d posts.yaml -r posts.json --filter status=published,draft --sort title --dir desc\n" +
		"  gridkit compile -d posts.yaml -r posts.json --filter views=10..100 -o table\n" +
		"  curl -s api/posts | gridkit compile -d posts.yaml -r - -i\n",
	Args: cobra.NoArgs,
	RunE: runCompile,
}

// compileInputs is everything one compile reads from disk and flags.
type compileInputs struct {
	definition string
	markup     string
	rows       string
	user       string
	expand     bool
	request    table.Request
}

func runCompile(cmd *cobra.Command, _ []string) error {
	window := limiter.Config{Limit: limitFlag, Offset: offsetFlag, Tail: tailFlag}
	if err := window.Validate(); err != nil {
		return err
	}
	var format table.Format
	if outputFormat != outputTable {
		f, err := table.ParseFormat(outputFormat)
		if err != nil {
			return fmt.Errorf("%w (expected json, yaml, msgpack or table)", err)
		}
		format = f
	}
	if definitionPath == "" && markupPath == "" {
		return errors.New("one of --definition or --markup is required")
	}
	if watch && rowsPath == "-" {
		return errors.New("--watch cannot follow rows read from stdin")
	}

	filters, err := parseFilters(filterFlags)
	if err != nil {
		return err
	}
	in := compileInputs{
		definition: definitionPath,
		markup:     markupPath,
		rows:       rowsPath,
		user:       userInput,
		expand:     expandRows,
		request: table.Request{
			Filters:    filters,
			Sort:       sortKey,
			Direction:  sortDir,
			Selected:   parseSelected(selectedIDs, cmd.Flags().Changed("selected")),
			ApplyQuery: !noQuery,
		},
	}

	ctx := rootCtx
	run := runSettings()
	// page is the window of the latest compile, over the rows before it
	// was applied.
	var page limiter.Page
	compile := func() (*table.Contract, error) {
		c, err := compileOnce(ctx, in)
		if err != nil {
			return nil, err
		}
		page = window.PageOf(len(c.Rows))
		c.Rows = limiter.Apply(window, c.Rows)
		return c, nil
	}

	c, err := compile()
	if err != nil {
		return err
	}

	if interactive {
		var reload chan preview.ReloadMsg
		if watch {
			reload = make(chan preview.ReloadMsg, 1)
			stop, err := watchInputs(ctx, in.files(), func(wctx context.Context) {
				next, err := compile()
				select {
				case reload <- preview.ReloadMsg{Contract: next, Err: err}:
				case <-wctx.Done():
				}
			})
			if err != nil {
				return err
			}
			defer stop()
		}
		opts, cleanup := programOptions(ctx, in.rows == "-")
		defer cleanup()
		return preview.Run(ctx, c, reload, run.NoColor, opts...)
	}

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	write := func(c *table.Contract) error {
		if err := writeContract(out, c, outputFormat, format, renderOptions{
			noColor:     run.NoColor,
			width:       outputWidth,
			showActions: showActions,
			rowNumbers:  rowNumbers,
			page:        page,
			windowed:    window.IsActive(),
		}); err != nil {
			return err
		}
		if outputFormat != outputTable && !run.IsQuiet {
			writeDiagnostics(errOut, c, run.NoColor)
		}
		return nil
	}
	if err := write(c); err != nil {
		return err
	}
	if !watch {
		if c.Diagnostics.Blocking {
			return errBlocking
		}
		return nil
	}

	lgr := logger.FromContext(ctx)
	stop, err := watchInputs(ctx, in.files(), func(context.Context) {
		next, err := compile()
		if err != nil {
			fmt.Fprintln(errOut, err)
			return
		}
		if err := write(next); err != nil {
			lgr.Error(err, "write contract")
		}
	})
	if err != nil {
		return err
	}
	defer stop()
	<-ctx.Done()
	return nil
}

// compileOnce loads every input and runs the compiler with the resolved
// settings.
func compileOnce(ctx context.Context, in compileInputs) (*table.Contract, error) {
	lgr := logger.FromContext(ctx)

	def := &table.Definition{}
	if in.definition != "" {
		d, err := loader.ReadDefinition(in.definition)
		if err != nil {
			return nil, err
		}
		def = d
	}
	if in.markup != "" {
		if err := loader.ReadMarkup(def, in.markup); err != nil {
			return nil, err
		}
	}
	if def.Name == "" {
		def.Name = tableName(in.definition, in.markup)
	}

	req := in.request
	if in.rows != "" {
		rows, err := loader.ReadRows(in.rows)
		if err != nil {
			return nil, err
		}
		if in.expand {
			rows = loader.ExpandRows(rows)
		}
		req.Rows = rows
	}
	if in.user != "" {
		perms, err := loader.ReadUser(in.user)
		if err != nil {
			return nil, fmt.Errorf("--user: %w", err)
		}
		req.Permissions = perms
	}

	opts, err := table.FromSettings(runSettings())
	if err != nil {
		return nil, err
	}
	opts = append(opts, table.WithLogger(*lgr))
	lgr.V(1).Info("compiling", "table", def.Name, "rows", len(req.Rows))
	return table.New(nil, opts...).Compile(ctx, def, req)
}

// files lists the inputs a watch follows. Stdin and inline tokens are
// skipped.
func (in compileInputs) files() []string {
	var out []string
	for _, p := range []string{in.definition, in.markup, in.rows, in.user} {
		if p == "" || p == "-" || loader.IsJWT(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// tableName derives a name from the first input file.
func tableName(paths ...string) string {
	for _, p := range paths {
		if p == "" {
			continue
		}
		base := filepath.Base(p)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return "table"
}

func writeDiagnostics(w io.Writer, c *table.Contract, noColor bool) {
	if s := renderDiagnostics(c, noColor); s != "" {
		fmt.Fprint(w, s)
	}
}

func init() { //nolint:gochecknoinits
	f := compileCmd.Flags()
	f.StringVarP(&definitionPath, "definition", "d", "", "table definition file (YAML, JSON or TOML)")
	f.StringVarP(&markupPath, "markup", "m", "", "markup file; replaces markup declared in the definition")
	f.StringVarP(&rowsPath, "rows", "r", "", `row set file, or "-" for stdin`)
	f.StringVarP(&userInput, "user", "u", "", "current user: a claims or permissions file, or a JWT")
	f.StringArrayVarP(&filterFlags, "filter", "f", nil, `filter value as key=value; "a,b" selects several, "lo..hi" is a range`)
	f.StringVarP(&sortKey, "sort", "s", "", "column key to sort by")
	f.StringVar(&sortDir, "dir", "", "sort direction: asc or desc")
	f.StringSliceVar(&selectedIDs, "selected", nil, "ids of the selected rows, for bulk action counts")
	f.StringVarP(&outputFormat, "output", "o", "json", "output format: json, yaml, msgpack or table")
	f.BoolVarP(&interactive, "interactive", "i", false, "browse the compiled table in a terminal UI")
	f.BoolVarP(&watch, "watch", "w", false, "recompile when an input file changes")
	f.BoolVar(&expandRows, "expand", false, "decode JSON and YAML held in string fields of the rows")
	f.BoolVar(&noQuery, "no-query", false, "report the query without filtering or sorting the rows")
	f.BoolVar(&showActions, "actions", true, "show row actions in table output")
	f.StringVar(&rowNumbers, "row-numbers", "none", "row labels in table output: none, numbered, index or bullet")
	f.IntVar(&outputWidth, "width", 0, "table output width (default terminal width)")
	f.IntVar(&limitFlag, "limit", 0, "emit at most N rows")
	f.IntVar(&offsetFlag, "offset", 0, "skip the first N rows")
	f.IntVar(&tailFlag, "tail", 0, "emit only the last N rows")
}
