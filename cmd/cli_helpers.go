package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	tea "charm.land/bubbletea/v2"
	"golang.org/x/term"
)

// parseFilters turns repeated key=value flags into request filter values.
// "a,b" is a list and "lo..hi" a range; either bound of a range may be
// empty.
func parseFilters(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --filter %q: expected key=value", pair)
		}
		out[key] = parseFilterValue(strings.TrimSpace(raw))
	}
	return out, nil
}

func parseFilterValue(raw string) any {
	if lo, hi, ok := strings.Cut(raw, ".."); ok {
		bounds := map[string]any{}
		if lo = strings.TrimSpace(lo); lo != "" {
			bounds["min"] = lo
		}
		if hi = strings.TrimSpace(hi); hi != "" {
			bounds["max"] = hi
		}
		return bounds
	}
	if strings.Contains(raw, ",") {
		var items []any
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		return items
	}
	return raw
}

// parseSelected returns the bulk selection, or nil when the flag was not
// given so that {count} stays unexpanded.
func parseSelected(ids []string, given bool) []any {
	if !given {
		return nil
	}
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

var stdinIsPiped = func() bool {
	return !term.IsTerminal(int(os.Stdin.Fd()))
}

var openTerminalIOFn = openTerminalIO

// programOptions reopens the terminal for the interactive preview when
// rows were piped on stdin. The cleanup must run after the program exits.
func programOptions(ctx context.Context, readsStdin bool) ([]tea.ProgramOption, func()) {
	cleanup := func() {}
	if !readsStdin || !stdinIsPiped() {
		return nil, cleanup
	}
	in, out, err := openTerminalIOFn()
	if err != nil {
		// no controlling terminal, as in CI
		return nil, cleanup
	}
	cleanup = func() {
		_ = in.Close()
		if out != nil && out != in {
			_ = out.Close()
		}
	}
	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithInput(in)}
	if out != nil {
		opts = append(opts, tea.WithOutput(out))
	}
	return opts, cleanup
}

func openTerminalIO() (*os.File, *os.File, error) {
	in, out := terminalDeviceNames(runtime.GOOS)
	input, err := os.OpenFile(in, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, err
	}
	if out == "" || out == in {
		return input, input, nil
	}
	output, err := os.OpenFile(out, os.O_RDWR, 0)
	if err != nil {
		return input, nil, err
	}
	return input, output, nil
}

func terminalDeviceNames(goos string) (input string, output string) {
	if goos == "windows" {
		return "CONIN$", "CONOUT$"
	}
	return "/dev/tty", "/dev/tty"
}

// terminalWidth returns the stdout width, else $COLUMNS, else 120.
func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	var w int
	if _, err := fmt.Sscanf(os.Getenv("COLUMNS"), "%d", &w); err == nil && w > 0 {
		return w
	}
	return 120
}
