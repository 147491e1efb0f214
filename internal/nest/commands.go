package nest

import (
	"fmt"
	"io"
	"os"
	"strings"

	"pipernest/internal/cli/scheme/colours"
	"pipernest/internal/config"
	"pipernest/internal/voice"

	"github.com/spf13/cobra"
)

// App holds the cobra handlers. The Nest is built on first use, after
// configuration has been read.
type App struct {
	In      io.Reader
	Out     io.Writer
	Options []Option

	// Settings overrides config.Load when set.
	Settings *config.Settings

	nest *Nest
}

func NewApp(opts ...Option) *App {
	return &App{In: os.Stdin, Out: os.Stdout, Options: opts}
}

// Nest returns the shared instance. Interactive callers are asked to pick a
// voice when none is selected; others fall back to the configured default.
func (a *App) Nest(interactive bool) (*Nest, error) {
	if a.nest != nil {
		return a.nest, nil
	}

	settings := config.Load()
	if a.Settings != nil {
		settings = *a.Settings
	}

	opts := append([]Option(nil), a.Options...)
	if interactive {
		opts = append(opts, WithSelector(PromptSelector(a.In, a.Out, settings.Locale)))
	}

	n, err := New(settings, opts...)
	if err != nil {
		return nil, err
	}
	a.nest = n
	return n, nil
}

func (a *App) ShowWelcome(cmd *cobra.Command, args []string) {
	out := a.Out
	fmt.Fprintln(out)
	colours.Title.Fprintln(out, "🐦 Welcome to pipernest! 🐦")
	fmt.Fprintln(out)
	colours.Info.Fprintln(out, "📚 Available commands:")
	fmt.Fprintln(out, "  • pipernest setup        - Install piper and pick a voice")
	fmt.Fprintln(out, "  • pipernest say <text>   - Speak text aloud")
	fmt.Fprintln(out, "  • pipernest voices       - Browse available voices")
	fmt.Fprintln(out, "  • pipernest voice <name> - Switch to another voice")
	fmt.Fprintln(out, "  • pipernest status       - Show what is installed")
	fmt.Fprintln(out, "  • pipernest serve        - Run as an MCP server on stdio")
	fmt.Fprintln(out)
}

func (a *App) Setup(cmd *cobra.Command, args []string) error {
	n, err := a.Nest(true)
	if err != nil {
		return err
	}

	colours.Info.Fprintln(a.Out, "🔧 Provisioning piper...")
	if err := n.Provision(cmd.Context()); err != nil {
		return err
	}

	colours.Success.Fprintln(a.Out, "✅ Ready to speak!")
	a.printStatus(n.Status())
	return nil
}

func (a *App) Say(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" {
		data, err := io.ReadAll(a.In)
		if err != nil {
			return fmt.Errorf("failed to read text from stdin: %w", err)
		}
		text = string(data)
	}

	n, err := a.Nest(false)
	if err != nil {
		return err
	}

	colours.Info.Fprintln(a.Out, "🔊 Speaking...")
	msg, err := n.SynthesizeAndPlay(cmd.Context(), text)
	if err != nil {
		return err
	}
	colours.Success.Fprintf(a.Out, "✅ %s\n", msg)
	return nil
}

func (a *App) ListVoices(cmd *cobra.Command, args []string) error {
	n, err := a.Nest(false)
	if err != nil {
		return err
	}

	entries, err := n.Voices(cmd.Context())
	if err != nil {
		return err
	}

	downloadedOnly, _ := cmd.Flags().GetBool("downloaded")

	fmt.Fprintln(a.Out)
	colours.Title.Fprintf(a.Out, "🎙️ %s voices 🎙️\n", n.settings.Locale)
	fmt.Fprintln(a.Out)

	shown := 0
	for _, e := range entries {
		if downloadedOnly && e.Status != voice.StatusPresent {
			continue
		}
		shown++

		marker := "  "
		if e.Selected {
			marker = "👉"
		}
		fmt.Fprintf(a.Out, "%s %2d. ", marker, e.Index)
		colours.Voice.Fprintf(a.Out, "%s", e.Descriptor.Key)
		fmt.Fprint(a.Out, " ")
		colours.Quality(string(e.Descriptor.Quality)).Fprintf(a.Out, "[%s]", e.Descriptor.Quality)
		fmt.Fprintf(a.Out, " %s", e.Descriptor.HumanSize())
		switch e.Status {
		case voice.StatusPresent:
			colours.Success.Fprint(a.Out, " 💾 downloaded")
		case voice.StatusCheckFailed:
			colours.Warning.Fprint(a.Out, " ⚠️ unknown")
		}
		fmt.Fprintln(a.Out)
	}

	fmt.Fprintln(a.Out)
	if shown == 0 {
		colours.Warning.Fprintln(a.Out, "🔍 No voices found.")
	} else {
		colours.Success.Fprintf(a.Out, "✨ %d voices. Pick one with: pipernest voice <number|name>\n", shown)
	}
	return nil
}

func (a *App) ChangeVoice(cmd *cobra.Command, args []string) error {
	n, err := a.Nest(true)
	if err != nil {
		return err
	}

	identifier := strings.Join(args, " ")
	if identifier == "" {
		voices, err := n.catalog.FetchAvailable(cmd.Context())
		if err != nil {
			return err
		}
		d, err := PromptSelector(a.In, a.Out, n.settings.Locale)(cmd.Context(), voices)
		if err != nil {
			return err
		}
		identifier = d.Key
	}

	msg, err := n.SelectVoice(cmd.Context(), identifier)
	if err != nil {
		return err
	}
	colours.Success.Fprintf(a.Out, "✅ %s\n", msg)
	return nil
}

func (a *App) ShowStatus(cmd *cobra.Command, args []string) error {
	n, err := a.Nest(false)
	if err != nil {
		return err
	}
	a.printStatus(n.Status())
	return nil
}

func (a *App) printStatus(s Status) {
	out := a.Out
	fmt.Fprintln(out)
	colours.Title.Fprintln(out, "📊 pipernest status")
	colours.Info.Fprintf(out, "💻 Platform: %s\n", s.Platform)

	if s.BinaryPath != "" {
		colours.Info.Fprintf(out, "🗣️ Piper: %s (%s)\n", s.BinaryPath, s.BinaryVersion)
	} else {
		colours.Warning.Fprintln(out, "🗣️ Piper: not installed")
	}

	if s.VoiceKey != "" {
		colours.Info.Fprint(out, "🎙️ Voice: ")
		colours.Voice.Fprintf(out, "%s", s.VoiceKey)
		fmt.Fprintf(out, " (%s)\n", s.VoiceQuality)
		colours.Info.Fprintf(out, "📁 Model: %s\n", s.ModelPath)
	} else {
		colours.Warning.Fprintln(out, "🎙️ Voice: none selected")
		colours.Info.Fprintln(out, "💡 Run 'pipernest setup' to choose one")
	}

	colours.Muted.Fprintf(out, "State file: %s\n", s.StatePath)
}
