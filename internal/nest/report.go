package nest

import (
	"fmt"
	"strings"

	"pipernest/internal/voice"
)

// VoiceEntry is one row of the voice listing.
type VoiceEntry struct {
	Index      int
	Descriptor voice.Descriptor
	Status     voice.DownloadStatus
	Selected   bool
}

// Status describes the provisioned binary and voice.
type Status struct {
	Provisioned   bool
	Platform      string
	StatePath     string
	BinaryPath    string
	BinaryVersion string
	VoiceKey      string
	VoiceName     string
	VoiceQuality  string
	ModelPath     string
}

// FormatCatalog renders the voice listing. Numbers are the 1-based indexes
// accepted by SelectVoice.
func FormatCatalog(locale string, entries []VoiceEntry) string {
	if len(entries) == 0 {
		return fmt.Sprintf("No %s voices available.", locale)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d %s voices (best quality first):\n", len(entries), locale)

	for _, e := range entries {
		d := e.Descriptor
		marker := " "
		if e.Selected {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %2d. %s [%s] %s", marker, e.Index, d.Key, d.Quality, d.HumanSize())
		switch e.Status {
		case voice.StatusPresent:
			b.WriteString(", downloaded")
		case voice.StatusCheckFailed:
			b.WriteString(", status unknown")
		}
		b.WriteString("\n")
	}

	b.WriteString("Select a voice by number, full key or part of its name.")
	return b.String()
}

// String renders the status for text transports.
func (s Status) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Platform: %s\n", s.Platform)
	if s.BinaryPath != "" {
		fmt.Fprintf(&b, "Piper: %s (%s)\n", s.BinaryPath, s.BinaryVersion)
	} else {
		b.WriteString("Piper: not installed\n")
	}
	if s.VoiceKey != "" {
		fmt.Fprintf(&b, "Voice: %s (%s), quality: %s\n", s.VoiceName, s.VoiceKey, s.VoiceQuality)
		fmt.Fprintf(&b, "Model: %s\n", s.ModelPath)
	} else {
		b.WriteString("Voice: none selected\n")
	}
	fmt.Fprintf(&b, "State file: %s\n", s.StatePath)
	fmt.Fprintf(&b, "Ready: %t", s.Provisioned)

	return b.String()
}
