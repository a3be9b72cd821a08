package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineType marks a line in a profile diff.
type LineType int

const (
	LineContext LineType = iota
	LineAdded
	LineRemoved
)

// Prefix is the unified-diff marker for the line type.
func (t LineType) Prefix() string {
	switch t {
	case LineAdded:
		return "+"
	case LineRemoved:
		return "-"
	default:
		return " "
	}
}

type Line struct {
	Type    LineType `json:"type"`
	Content string   `json:"content"`
}

// Hunk is a run of changes with surrounding context.
type Hunk struct {
	OldStart int    `json:"old_start"`
	NewStart int    `json:"new_start"`
	Lines    []Line `json:"lines"`
}

// Engine computes line diffs.
type Engine struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

func NewEngine() *Engine {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	return &Engine{dmp: dmp}
}

type operation struct {
	typ     LineType
	oldLine int
	newLine int
	content string
}

// Hunks diffs two texts line by line and groups changes with up to
// contextLines of unchanged lines around them. Equal texts yield nil.
func (e *Engine) Hunks(oldText, newText string, contextLines int) []Hunk {
	if oldText == newText {
		return nil
	}
	a, b, lineArray := e.dmp.DiffLinesToChars(oldText, newText)
	diffs := e.dmp.DiffMain(a, b, false)
	diffs = e.dmp.DiffCharsToLines(diffs, lineArray)
	return groupIntoHunks(operations(diffs), contextLines)
}

// Unified renders hunks in unified-diff style without file headers.
func Unified(hunks []Hunk) string {
	var sb strings.Builder
	for _, h := range hunks {
		for _, l := range h.Lines {
			sb.WriteString(l.Type.Prefix())
			sb.WriteString(l.Content)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func operations(diffs []diffmatchpatch.Diff) []operation {
	var ops []operation
	oldLine, newLine := 0, 0
	for _, d := range diffs {
		lines := strings.Split(d.Text, "\n")
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		for _, line := range lines {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				ops = append(ops, operation{LineContext, oldLine, newLine, line})
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				ops = append(ops, operation{LineRemoved, oldLine, -1, line})
				oldLine++
			case diffmatchpatch.DiffInsert:
				ops = append(ops, operation{LineAdded, -1, newLine, line})
				newLine++
			}
		}
	}
	return ops
}

func groupIntoHunks(ops []operation, contextLines int) []Hunk {
	var hunks []Hunk
	var current *Hunk
	lastChange := -1

	for i, op := range ops {
		if op.typ != LineContext {
			if current == nil {
				current = &Hunk{}
				start := i - contextLines
				if start < 0 {
					start = 0
				}
				// start positions come from the first context line, if any
				current.OldStart = ops[i].oldLine + 1
				current.NewStart = ops[i].newLine + 1
				for j := start; j < i; j++ {
					if j == start {
						current.OldStart = ops[j].oldLine + 1
						current.NewStart = ops[j].newLine + 1
					}
					current.Lines = append(current.Lines, Line{Type: LineContext, Content: ops[j].content})
				}
				if current.OldStart < 1 {
					current.OldStart = 0
				}
				if current.NewStart < 1 {
					current.NewStart = 0
				}
			}
			lastChange = i
		}
		if current == nil {
			continue
		}
		if op.typ == LineContext && i-lastChange > contextLines {
			hunks = append(hunks, *current)
			current = nil
			continue
		}
		current.Lines = append(current.Lines, Line{Type: op.typ, Content: op.content})
	}
	if current != nil {
		hunks = append(hunks, *current)
	}
	return hunks
}
