// Package linear provides a synchronous, line-based renderer for build stages and reports.
package linear

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/stale/internal/ui/output"
	"go.trai.ch/stale/internal/ui/style"
)

// Renderer implements ports.Renderer with chronological output.
// Stage laps go to stderr and the report goes to stdout.
type Renderer struct {
	stdout io.Writer
	stderr io.Writer
	out    *termenv.Output
	errOut *termenv.Output

	mu       sync.Mutex
	stages   map[string]*stageState
	jsonMode bool
}

type stageState struct {
	name      string
	depth     int
	startTime time.Time
}

// NewRenderer creates a new Renderer. Nil writers select os.Stdout and os.Stderr.
func NewRenderer(stdout, stderr io.Writer) *Renderer {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &Renderer{
		stdout: stdout,
		stderr: stderr,
		out:    output.New(stdout),
		errOut: output.New(stderr),
		stages: make(map[string]*stageState),
	}
}

// SetJSON switches the report to a single JSON document and silences stage laps.
func (r *Renderer) SetJSON(enable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jsonMode = enable
}

// OnStageStart records the start of a stage. Nested stages are indented below their parent.
func (r *Renderer) OnStageStart(spanID, parentID, name string, startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	depth := 0
	if parent, ok := r.stages[parentID]; ok {
		depth = parent.depth + 1
	}
	r.stages[spanID] = &stageState{name: name, depth: depth, startTime: startTime}
}

// OnStageComplete prints the lap of a stage.
func (r *Renderer) OnStageComplete(spanID string, endTime time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stage, ok := r.stages[spanID]
	if !ok {
		return
	}
	delete(r.stages, spanID)
	if r.jsonMode {
		return
	}

	indent := strings.Repeat("  ", stage.depth)
	prefix := r.errOut.String(fmt.Sprintf("[%s]", stage.name)).Faint().String()
	lap := endTime.Sub(stage.startTime).Round(time.Microsecond)

	if err != nil {
		symbol := r.errOut.String(style.Cross).Foreground(r.errOut.Color(string(style.Red))).String()
		_, _ = fmt.Fprintf(r.stderr, "%s%s %s Failed after %v: %v\n", indent, prefix, symbol, lap, err)
		return
	}
	symbol := r.errOut.String(style.Check).Foreground(r.errOut.Color(string(style.Green))).String()
	_, _ = fmt.Fprintf(r.stderr, "%s%s %s %v\n", indent, prefix, symbol, lap)
}

// OnReport prints the files that took part in the run and the module decisions.
func (r *Renderer) OnReport(report *domain.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.jsonMode {
		r.printJSONLocked(report)
		return
	}

	if report.Cold {
		_, _ = fmt.Fprintln(r.stdout, r.out.String("cache discarded, rebuilt from scratch").Faint().String())
	}

	for _, key := range report.Diagnostics.Keys() {
		state := report.Diagnostics[key]
		icon, color := style.StateIcon(state)
		_, _ = fmt.Fprintf(r.stdout, "%s %s %s\n",
			r.out.String(icon).Foreground(r.out.Color(string(color))).String(),
			key,
			r.out.String(state.String()).Faint().String())
	}

	verb := "compiled"
	if report.DryRun {
		verb = "to compile"
	}
	_, _ = fmt.Fprintf(r.stdout, "%d file(s) %s, %d removed, %d extra round(s)\n",
		len(report.Dirty), verb, len(report.Removed), report.Rounds)

	for _, m := range report.Modules {
		action := "written"
		if m.Reused {
			action = "reused"
		}
		symbol := r.out.String(style.Check).Foreground(r.out.Color(string(style.Green))).String()
		_, _ = fmt.Fprintf(r.stdout, "%s %s %s %s %s\n", symbol, m.Library, action, style.Arrow, m.Output)
	}
}

type jsonFile struct {
	File  string   `json:"file"`
	State []string `json:"state"`
}

type jsonModule struct {
	Library string `json:"library"`
	Reused  bool   `json:"reused"`
	Output  string `json:"output"`
}

type jsonReport struct {
	Dirty   []jsonFile   `json:"dirty"`
	Removed []string     `json:"removed"`
	Rounds  int          `json:"rounds"`
	Modules []jsonModule `json:"modules"`
	Cold    bool         `json:"cold"`
	DryRun  bool         `json:"dryRun"`
}

func (r *Renderer) printJSONLocked(report *domain.Report) {
	doc := jsonReport{
		Dirty:   []jsonFile{},
		Removed: []string{},
		Modules: []jsonModule{},
		Rounds:  report.Rounds,
		Cold:    report.Cold,
		DryRun:  report.DryRun,
	}
	for _, key := range report.Diagnostics.Keys() {
		doc.Dirty = append(doc.Dirty, jsonFile{
			File:  key.String(),
			State: strings.Split(report.Diagnostics[key].String(), ","),
		})
	}
	for _, key := range report.Removed {
		doc.Removed = append(doc.Removed, key.String())
	}
	for _, m := range report.Modules {
		doc.Modules = append(doc.Modules, jsonModule{Library: m.Library.String(), Reused: m.Reused, Output: m.Output})
	}

	enc := json.NewEncoder(r.stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(doc)
}
