package mesh

import "fmt"

// Level grades a diagnostic. Neither level stops processing.
type Level int

const (
	LevelNote Level = iota
	LevelWarning
)

func (l Level) String() string {
	if l == LevelWarning {
		return "warning"
	}
	return "note"
}

// Diagnostic is a recovered condition worth surfacing to the user.
// Mesh and Stream are -1 when the diagnostic is model-wide.
type Diagnostic struct {
	Level   Level
	Mesh    int
	Stream  int
	Message string
}

func (d Diagnostic) String() string {
	where := "model"
	switch {
	case d.Mesh >= 0:
		where = fmt.Sprintf("mesh %d", d.Mesh)
	case d.Stream >= 0:
		where = fmt.Sprintf("stream %d", d.Stream)
	}
	return fmt.Sprintf("%s: %s: %s", d.Level, where, d.Message)
}

// Report collects diagnostics across pipeline stages. A nil *Report
// discards everything.
type Report struct {
	Items []Diagnostic
}

// Notef records an informational diagnostic.
func (r *Report) Notef(meshIdx, streamIdx int, format string, args ...any) {
	r.add(LevelNote, meshIdx, streamIdx, format, args...)
}

// Warnf records a degenerate-input diagnostic.
func (r *Report) Warnf(meshIdx, streamIdx int, format string, args ...any) {
	r.add(LevelWarning, meshIdx, streamIdx, format, args...)
}

func (r *Report) add(l Level, meshIdx, streamIdx int, format string, args ...any) {
	if r == nil {
		return
	}
	r.Items = append(r.Items, Diagnostic{
		Level:   l,
		Mesh:    meshIdx,
		Stream:  streamIdx,
		Message: fmt.Sprintf(format, args...),
	})
}

// Warnings returns the number of warning-level entries.
func (r *Report) Warnings() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, d := range r.Items {
		if d.Level == LevelWarning {
			n++
		}
	}
	return n
}
