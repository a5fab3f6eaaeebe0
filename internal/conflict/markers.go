package conflict

import (
	"fmt"
	"strings"
)

// segment is one region of a marker-delimited file: either common text or a
// conflict block carrying both sides.
type segment struct {
	conflict bool
	common   []string
	ours     []string
	theirs   []string
}

// parseMarkers splits marker-delimited content into common and conflict
// segments. Malformed marker sequences are an error; resolution must never
// guess at a truncated block.
func parseMarkers(content string) ([]segment, error) {
	lines := splitLines(content)

	var segments []segment
	var common []string

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if !strings.HasPrefix(line, "<<<<<<<") {
			common = append(common, line)
			continue
		}

		if len(common) > 0 {
			segments = append(segments, segment{common: common})
			common = nil
		}

		seg := segment{conflict: true}
		i++
		for ; i < len(lines) && !strings.HasPrefix(lines[i], "======="); i++ {
			seg.ours = append(seg.ours, lines[i])
		}
		if i >= len(lines) {
			return nil, fmt.Errorf("conflict: unterminated block: missing =======")
		}
		i++
		for ; i < len(lines) && !strings.HasPrefix(lines[i], ">>>>>>>"); i++ {
			seg.theirs = append(seg.theirs, lines[i])
		}
		if i >= len(lines) {
			return nil, fmt.Errorf("conflict: unterminated block: missing >>>>>>>")
		}
		segments = append(segments, seg)
	}

	if len(common) > 0 {
		segments = append(segments, segment{common: common})
	}
	return segments, nil
}

// render flattens segments back into file content, resolving each conflict
// block through pick.
func render(segments []segment, pick func(seg segment) []string) string {
	var out []string
	for _, seg := range segments {
		if seg.conflict {
			out = append(out, pick(seg)...)
		} else {
			out = append(out, seg.common...)
		}
	}
	return joinLines(out)
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
