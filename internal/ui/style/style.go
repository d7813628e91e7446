// Package style provides shared UI styling primitives including brand colors
// and icons for consistent visual presentation across the CLI.
package style

import (
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/stale/internal/core/domain"
)

// Brand Colors.
var (
	Iris   = lipgloss.Color("#8B5CF6")
	Slate  = lipgloss.Color("#667085")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
)

// Icons.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Tilde   = "~"
	Dot     = "●"
	Circle  = "○"
	Plus    = "+"
	Minus   = "-"
	Arrow   = "→"
)

// StateIcon returns the icon and color summarizing why a file took part in a build.
// Content changes win over propagated ones.
func StateIcon(s domain.DirtyFileState) (string, lipgloss.Color) {
	switch {
	case s.Has(domain.StateRemoved):
		return Minus, Red
	case s.Has(domain.StateAdded):
		return Plus, Green
	case s.Has(domain.StateModified):
		return Dot, Yellow
	case s == 0:
		return Circle, Slate
	default:
		return Tilde, Iris
	}
}
