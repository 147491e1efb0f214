package nest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"pipernest/internal/cli/scheme/colours"
	"pipernest/internal/voice"
)

var ErrSelectionCancelled = errors.New("voice selection cancelled")

// PromptSelector lists the voices on out and reads a choice from in. The
// answer may be a number, a key or part of a name.
func PromptSelector(in io.Reader, out io.Writer, locale string) voice.Selector {
	reader := bufio.NewReader(in)

	return func(_ context.Context, voices []voice.Descriptor) (voice.Descriptor, error) {
		fmt.Fprintln(out)
		colours.Title.Fprintln(out, "🎙️ Choose a voice 🎙️")
		fmt.Fprintln(out)

		for i, d := range voices {
			fmt.Fprintf(out, "%2d. ", i+1)
			colours.Voice.Fprintf(out, "%s", d.Key)
			fmt.Fprintf(out, " (%s, %s)\n", d.Quality, d.HumanSize())
		}

		for {
			fmt.Fprintln(out)
			colours.Prompt.Fprint(out, "🌟 Enter a number or name (or 'q' to quit): ")

			input, err := reader.ReadString('\n')
			input = strings.TrimSpace(input)
			if input == "" && err != nil {
				return voice.Descriptor{}, ErrSelectionCancelled
			}

			if input == "q" || input == "quit" {
				return voice.Descriptor{}, ErrSelectionCancelled
			}

			d, resolveErr := voice.Resolve(input, voices, locale)
			if resolveErr == nil {
				return d, nil
			}
			colours.Error.Fprintf(out, "❌ %v\n", resolveErr)

			if err != nil {
				return voice.Descriptor{}, ErrSelectionCancelled
			}
		}
	}
}
