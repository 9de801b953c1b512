package console

import "github.com/charmbracelet/lipgloss"

var (
	// Event colors: blue for session lifecycle, emerald for completion, red for errors.
	colorSession = lipgloss.AdaptiveColor{Light: "#2563eb", Dark: "#60a5fa"}
	colorDone    = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34d399"}
	colorError   = lipgloss.AdaptiveColor{Light: "#dc2626", Dark: "#f87171"}

	colorBright = lipgloss.AdaptiveColor{Light: "#0f172a", Dark: "#f1f5f9"}
	colorDim    = lipgloss.AdaptiveColor{Light: "#94a3b8", Dark: "#64748b"}
)

var (
	styleSession = lipgloss.NewStyle().Foreground(colorSession).Bold(true)
	styleDone    = lipgloss.NewStyle().Foreground(colorDone).Bold(true)
	styleError   = lipgloss.NewStyle().Foreground(colorError).Bold(true)

	styleLinePrefix = lipgloss.NewStyle().Foreground(colorDim)
	styleID         = lipgloss.NewStyle().Foreground(colorDim)
	styleCommand    = lipgloss.NewStyle().Foreground(colorBright).Bold(true)
)
