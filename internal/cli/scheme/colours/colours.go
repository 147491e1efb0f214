package colours

import "github.com/fatih/color"

// Color scheme for the CLI
var (
	Title   = color.New(color.FgCyan, color.Bold)
	Voice   = color.New(color.FgMagenta)
	Prompt  = color.New(color.FgGreen, color.Bold)
	Error   = color.New(color.FgRed, color.Bold)
	Success = color.New(color.FgGreen)
	Info    = color.New(color.FgBlue)
	Warning = color.New(color.FgYellow)
	Muted   = color.New(color.Faint)
)

// Quality picks a colour for a voice quality tier.
func Quality(tier string) *color.Color {
	switch tier {
	case "high":
		return Success
	case "medium":
		return Info
	case "low":
		return Warning
	default:
		return Muted
	}
}
