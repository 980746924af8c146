package mode

import (
	"fmt"
	"math"
	"sort"
)

// Strategy is how conflicting keys are settled in hybrid mode.
type Strategy string

// Strategies. No strategy merges fields: the winning source's definition
// of a conflicting key is kept whole.
const (
	// ChildrenPriority keeps the markup definition and warns.
	ChildrenPriority Strategy = "children-priority"
	// PropsPriority keeps the configuration definition and warns.
	PropsPriority Strategy = "props-priority"
	// PermissiveMerge keeps the mode's priority source and only notes
	// conflicts.
	PermissiveMerge Strategy = "permissive-merge"
	// StrictMerge keeps the mode's priority source, warns with a
	// recommendation per key, and blocks when conflicts are not allowed.
	StrictMerge Strategy = "strict-merge"
)

// Strategies lists every strategy.
var Strategies = []Strategy{ChildrenPriority, PropsPriority, PermissiveMerge, StrictMerge}

// ParseStrategy validates a strategy name. The empty string is accepted
// and means the mode's default.
func ParseStrategy(s string) (Strategy, error) {
	if s == "" {
		return "", nil
	}
	for _, st := range Strategies {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown merge strategy %q (want one of %v)", s, Strategies)
}

// Source names a declaration source.
type Source string

// Sources.
const (
	SourceMarkup Source = "markup"
	SourceProps  Source = "props"
)

// Options tune reconciliation.
type Options struct {
	// Strategy defaults to the mode's priority.
	Strategy Strategy
	// AllowConflicts is true by default in callers; false makes strict-merge
	// conflicts blocking.
	AllowConflicts bool
}

// Resolution records which source won a conflicting key.
type Resolution struct {
	Key    string `json:"key" yaml:"key" msgpack:"key"`
	Winner Source `json:"winner" yaml:"winner" msgpack:"winner"`
}

// Result is a reconciled list.
type Result[T any] struct {
	Items       []T
	Strategy    Strategy
	Priority    Priority
	Conflicts   ConflictSet
	Resolutions []Resolution
	Diagnostics Diagnostics
}

// Keyed extracts reconciliation keys and explicit ordering from items.
type Keyed[T any] struct {
	Key func(T) string
	// Order returns an explicit position; zero means unordered. Optional.
	Order func(T) int
	// Noun names the item kind in diagnostics, "column" by default.
	Noun string
}

// Reconcile merges the markup and props declarations of one kind of item
// under tm. Dynamic mode keeps props, declarative mode keeps markup, and
// hybrid mode keeps every key from both with conflicts settled by the
// strategy. Items follow the winning source's order, then the other
// source's remaining items. Items with an explicit order are then moved
// ahead of the rest, stably.
func Reconcile[T any](tm TableMode, fromMarkup, fromProps []T, k Keyed[T], opts Options) Result[T] {
	res := Result[T]{Priority: tm.Priority, Conflicts: ConflictSet{}}
	switch tm.Mode {
	case Dynamic:
		res.Items = append([]T(nil), fromProps...)
		return finish(res, k)
	case Declarative:
		res.Items = append([]T(nil), fromMarkup...)
		return finish(res, k)
	}

	strategy := opts.Strategy
	if strategy == "" {
		strategy = defaultStrategy(tm.Priority)
	}
	res.Strategy = strategy

	winner := SourceMarkup
	switch strategy {
	case PropsPriority:
		winner = SourceProps
	case PermissiveMerge, StrictMerge:
		res.Priority = PriorityMerge
		if tm.Priority == PriorityProps {
			winner = SourceProps
		}
	}

	primary, secondary := fromMarkup, fromProps
	if winner == SourceProps {
		primary, secondary = fromProps, fromMarkup
	}
	markupKeys := keys(fromMarkup, k.Key)
	res.Conflicts = Intersect(markupKeys, keys(fromProps, k.Key))

	taken := map[string]bool{}
	for _, item := range primary {
		key := k.Key(item)
		if taken[key] {
			continue
		}
		taken[key] = true
		res.Items = append(res.Items, item)
	}
	for _, item := range secondary {
		key := k.Key(item)
		if taken[key] {
			continue
		}
		taken[key] = true
		res.Items = append(res.Items, item)
	}

	for _, key := range res.Conflicts {
		res.Resolutions = append(res.Resolutions, Resolution{Key: key, Winner: winner})
	}
	res.Diagnostics = diagnose(k.noun(), res.Conflicts, strategy, winner, opts.AllowConflicts)
	return finish(res, k)
}

func defaultStrategy(p Priority) Strategy {
	if p == PriorityProps {
		return PropsPriority
	}
	return ChildrenPriority
}

func (k Keyed[T]) noun() string {
	if k.Noun == "" {
		return "column"
	}
	return k.Noun
}

func diagnose(noun string, conflicts ConflictSet, strategy Strategy, winner Source, allow bool) Diagnostics {
	var d Diagnostics
	for _, key := range conflicts {
		msg := fmt.Sprintf("%s %q is declared in both markup and props; the %s definition is used", noun, key, winner)
		switch strategy {
		case PermissiveMerge:
			d.Notes = append(d.Notes, msg)
		case StrictMerge:
			d.Warnings = append(d.Warnings, msg)
			d.Recommendations = append(d.Recommendations,
				fmt.Sprintf("remove %q from the %s declaration or rename one of them", key, other(winner)))
		default:
			d.Warnings = append(d.Warnings, msg)
		}
	}
	if strategy == StrictMerge && len(conflicts) > 0 && !allow {
		d.Blocking = true
		d.Recommendations = append(d.Recommendations,
			"set allowConflicts to true to render with the current resolution")
	}
	return d
}

func other(s Source) Source {
	if s == SourceMarkup {
		return SourceProps
	}
	return SourceMarkup
}

func keys[T any](items []T, key func(T) string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = key(item)
	}
	return out
}

func finish[T any](res Result[T], k Keyed[T]) Result[T] {
	if k.Order == nil {
		return res
	}
	ordered := false
	for _, item := range res.Items {
		if k.Order(item) != 0 {
			ordered = true
			break
		}
	}
	if ordered {
		sort.SliceStable(res.Items, func(i, j int) bool {
			return rank(k.Order(res.Items[i])) < rank(k.Order(res.Items[j]))
		})
	}
	return res
}

// rank places unordered items after ordered ones.
func rank(order int) int {
	if order == 0 {
		return math.MaxInt
	}
	return order
}
