package tts

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// BeepPlayer decodes the wav in-process and plays it on the default
// output device.
type BeepPlayer struct{}

func (b *BeepPlayer) Play(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &PlaybackError{ExitCode: -1, Err: err}
	}

	streamer, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return &PlaybackError{ExitCode: -1, Err: fmt.Errorf("failed to decode %s: %w", path, err)}
	}
	defer streamer.Close()

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		return &PlaybackError{ExitCode: -1, Err: err}
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}
