package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/craftlink/craftlink/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
)

// HeaderStyle is used for the application title bar.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// UnreadBadgeStyle renders the unread counter in the header.
var UnreadBadgeStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorRed).
	Padding(0, 1)

// UnreadTitleStyle marks unread feed entries.
var UnreadTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorWhite)

// ReadTitleStyle marks read feed entries.
var ReadTitleStyle = lipgloss.NewStyle().Foreground(ColorGray)

// VariantStyle returns the accent style for a notification variant.
func VariantStyle(v model.Variant) lipgloss.Style {
	switch v {
	case model.VariantSuccess:
		return lipgloss.NewStyle().Foreground(ColorGreen)
	case model.VariantWarning:
		return lipgloss.NewStyle().Foreground(ColorYellow)
	case model.VariantError:
		return lipgloss.NewStyle().Foreground(ColorRed)
	default:
		return lipgloss.NewStyle().Foreground(ColorBlue)
	}
}
