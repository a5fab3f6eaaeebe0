// Package conflict provides detection and resolution strategies for merge
// conflicts, with generic text strategies and BOM-aware strategies kept as
// separate interfaces: text strategies treat lines as opaque, BOM strategies
// assume structured part/quantity records rendered as text.
package conflict

import (
	"fmt"
	"path"
	"strings"
)

// TextStrategy resolves a conflicted file treating its lines as opaque text.
type TextStrategy int

const (
	// TextOurs writes our side's blob content verbatim.
	TextOurs TextStrategy = iota
	// TextTheirs writes their side's blob content verbatim.
	TextTheirs
	// TextUnion concatenates both sides of every conflict block. A last
	// resort; the result may be syntactically invalid for structured formats.
	TextUnion
)

func (s TextStrategy) String() string {
	switch s {
	case TextOurs:
		return "ours"
	case TextTheirs:
		return "theirs"
	case TextUnion:
		return "union"
	default:
		return fmt.Sprintf("TextStrategy(%d)", int(s))
	}
}

// ParseTextStrategy maps a strategy name to its TextStrategy.
func ParseTextStrategy(raw string) (TextStrategy, error) {
	switch raw {
	case "ours":
		return TextOurs, nil
	case "theirs":
		return TextTheirs, nil
	case "union":
		return TextUnion, nil
	default:
		return 0, fmt.Errorf("conflict: unknown text strategy %q (ours, theirs, union)", raw)
	}
}

// BOMStrategy resolves a conflicted bill-of-materials file.
type BOMStrategy int

const (
	// BOMPreferOurs keeps our side of every conflict block.
	BOMPreferOurs BOMStrategy = iota
	// BOMPreferTheirs keeps their side of every conflict block.
	BOMPreferTheirs
	// BOMMergeQuantities keeps both conflicting blocks wrapped in comment
	// banners for manual review. This is a textual heuristic, not a
	// structural merge of part/quantity pairs.
	BOMMergeQuantities
)

func (s BOMStrategy) String() string {
	switch s {
	case BOMPreferOurs:
		return "prefer-ours"
	case BOMPreferTheirs:
		return "prefer-theirs"
	case BOMMergeQuantities:
		return "merge-quantities"
	default:
		return fmt.Sprintf("BOMStrategy(%d)", int(s))
	}
}

// ParseBOMStrategy maps a strategy name to its BOMStrategy.
func ParseBOMStrategy(raw string) (BOMStrategy, error) {
	switch raw {
	case "prefer-ours":
		return BOMPreferOurs, nil
	case "prefer-theirs":
		return BOMPreferTheirs, nil
	case "merge-quantities":
		return BOMMergeQuantities, nil
	default:
		return 0, fmt.Errorf("conflict: unknown BOM strategy %q (prefer-ours, prefer-theirs, merge-quantities)", raw)
	}
}

// IsBOMFile reports whether a path looks like a bill-of-materials file:
// either a .bom extension or a csv/txt file whose name starts with "bom".
func IsBOMFile(p string) bool {
	base := strings.ToLower(path.Base(p))
	ext := path.Ext(base)
	if ext == ".bom" {
		return true
	}
	return (ext == ".csv" || ext == ".txt") && strings.HasPrefix(base, "bom")
}
