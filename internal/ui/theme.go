package ui

import (
	"strings"

	"github.com/fatih/color"
)

// Theme bundles palette + symbols + box borders.
// All UI helpers pull from `current`.
type Theme struct {
	Name                                   string
	Title, Muted, Accent                   *color.Color
	Success, Error, Pending                *color.Color
	BoxUnchecked, BoxChecked               string
	CornerTL, CornerTR, CornerBL, CornerBR string
	H, V                                   string
	SymDone, SymPending, SymFail           string
}

var current = classic()

// Themes lists the names SetTheme accepts.
func Themes() []string { return []string{"classic", "neon", "mono"} }

func SetTheme(name string) {
	switch strings.ToLower(name) {
	case "neon":
		current = Theme{
			Name:  "neon",
			Title: color.New(color.FgHiMagenta, color.Bold),
			Muted: color.New(color.FgHiBlack), Accent: color.New(color.FgHiCyan),
			Success: color.New(color.FgGreen), Error: color.New(color.FgRed), Pending: color.New(color.FgHiYellow),
			BoxUnchecked: "◻", BoxChecked: "◼",
			CornerTL: "╭", CornerTR: "╮", CornerBL: "╰", CornerBR: "╯",
			H: "─", V: "│",
			SymDone: "✔", SymPending: "•", SymFail: "✖",
		}
	case "mono":
		plain := color.New(color.Reset)
		plain.DisableColor()
		current = Theme{
			Name:  "mono",
			Title: plain, Muted: plain, Accent: plain,
			Success: plain, Error: plain, Pending: plain,
			BoxUnchecked: "[ ]", BoxChecked: "[x]",
			CornerTL: "+", CornerTR: "+", CornerBL: "+", CornerBR: "+",
			H: "-", V: "|",
			SymDone: "x", SymPending: "-", SymFail: "!",
		}
	default:
		current = classic()
	}
}

func classic() Theme {
	return Theme{
		Name:  "classic",
		Title: color.New(color.Bold),
		Muted: color.New(color.FgHiBlack), Accent: color.New(color.FgBlue),
		Success: color.New(color.FgGreen), Error: color.New(color.FgRed), Pending: color.New(color.FgYellow),
		BoxUnchecked: "☐", BoxChecked: "☑",
		CornerTL: "┌", CornerTR: "┐", CornerBL: "└", CornerBR: "┘",
		H: "─", V: "│",
		SymDone: "✔", SymPending: "•", SymFail: "✖",
	}
}

// Expose what renderers need
func Current() Theme { return current }

// SetColorMode forces color on ("always") or off ("never"); "auto" leaves
// the decision to fatih/color's terminal detection (and NO_COLOR).
func SetColorMode(mode string) {
	switch strings.ToLower(mode) {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	}
}
