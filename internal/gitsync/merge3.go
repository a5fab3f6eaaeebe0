package gitsync

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Conflict markers, matching the git defaults the resolver strategies split on.
const (
	markerOurs   = "<<<<<<<"
	markerSplit  = "======="
	markerTheirs = ">>>>>>>"
)

// edit replaces base[start:end) with lines.
type edit struct {
	start, end int
	lines      []string
}

// merge3 performs a three-way line merge of base/ours/theirs. Regions edited
// by only one side take that side; regions both sides edited identically take
// either; anything else becomes a marker-delimited conflict block labelled
// with the two sides. The returned bool reports whether any conflict block
// was emitted. Output is normalized to one line per element.
func merge3(base, ours, theirs []string, oursLabel, theirsLabel string) ([]string, bool) {
	editsOurs := lineEdits(base, ours)
	editsTheirs := lineEdits(base, theirs)

	var out []string
	conflicted := false
	pos := 0
	i, j := 0, 0

	for i < len(editsOurs) || j < len(editsTheirs) {
		var next edit
		switch {
		case j >= len(editsTheirs):
			next = editsOurs[i]
		case i >= len(editsOurs):
			next = editsTheirs[j]
		case editsOurs[i].start <= editsTheirs[j].start:
			next = editsOurs[i]
		default:
			next = editsTheirs[j]
		}

		lo, hi := next.start, next.end
		var groupOurs, groupTheirs []edit

		// Expand the region while edits from either side touch it. Touching
		// edits (including same-point insertions) are grouped, which is
		// conservative: it may widen a conflict, never miss one.
		for {
			grew := false
			if i < len(editsOurs) && editsOurs[i].start <= hi {
				e := editsOurs[i]
				groupOurs = append(groupOurs, e)
				if e.end > hi {
					hi = e.end
				}
				i++
				grew = true
			}
			if j < len(editsTheirs) && editsTheirs[j].start <= hi {
				e := editsTheirs[j]
				groupTheirs = append(groupTheirs, e)
				if e.end > hi {
					hi = e.end
				}
				j++
				grew = true
			}
			if !grew {
				break
			}
		}

		out = append(out, base[pos:lo]...)

		oursRegion := applyEdits(base, groupOurs, lo, hi)
		theirsRegion := applyEdits(base, groupTheirs, lo, hi)

		switch {
		case len(groupTheirs) == 0:
			out = append(out, oursRegion...)
		case len(groupOurs) == 0:
			out = append(out, theirsRegion...)
		case equalLines(oursRegion, theirsRegion):
			out = append(out, oursRegion...)
		default:
			conflicted = true
			out = append(out, markerOurs+" "+oursLabel)
			out = append(out, oursRegion...)
			out = append(out, markerSplit)
			out = append(out, theirsRegion...)
			out = append(out, markerTheirs+" "+theirsLabel)
		}

		pos = hi
	}

	out = append(out, base[pos:]...)
	return out, conflicted
}

// lineEdits computes the edit script from base to side at line granularity.
func lineEdits(base, side []string) []edit {
	dmp := diffmatchpatch.New()
	c1, c2, arr := dmp.DiffLinesToChars(joinLines(base), joinLines(side))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(c1, c2, false), arr)

	var edits []edit
	baseIdx := 0
	open := false
	var cur edit

	flush := func() {
		if open {
			edits = append(edits, cur)
			open = false
		}
	}

	for _, d := range diffs {
		lines := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			baseIdx += len(lines)
		case diffmatchpatch.DiffDelete:
			if !open {
				cur = edit{start: baseIdx, end: baseIdx}
				open = true
			}
			baseIdx += len(lines)
			cur.end = baseIdx
		case diffmatchpatch.DiffInsert:
			if !open {
				cur = edit{start: baseIdx, end: baseIdx}
				open = true
			}
			cur.lines = append(cur.lines, lines...)
		}
	}
	flush()
	return edits
}

// applyEdits renders base[lo:hi) with the given edits applied.
func applyEdits(base []string, edits []edit, lo, hi int) []string {
	var out []string
	pos := lo
	for _, e := range edits {
		if e.start > pos {
			out = append(out, base[pos:e.start]...)
		}
		out = append(out, e.lines...)
		if e.end > pos {
			pos = e.end
		}
	}
	if pos < hi {
		out = append(out, base[pos:hi]...)
	}
	return out
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// splitLines splits text into lines without a trailing empty element.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

// joinLines renders lines as newline-terminated text.
func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
