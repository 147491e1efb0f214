package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// Synthesizer turns text into a wav file with the piper executable.
type Synthesizer struct {
	BinaryPath string
	ModelPath  string
}

// Synthesize runs piper with text on stdin and waits for outPath.
func (s *Synthesizer) Synthesize(ctx context.Context, text, outPath string) error {
	var stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, s.BinaryPath, "--model", s.ModelPath, "--output_file", outPath)
	cmd.Stdin = strings.NewReader(text)
	cmd.Stderr = &stderr

	logrus.WithFields(logrus.Fields{
		"model":  s.ModelPath,
		"output": outPath,
		"chars":  len(text),
	}).Debug("Running piper")

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &SynthesisError{ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return &SynthesisError{ExitCode: -1, Stderr: stderr.String(), Err: err}
	}

	if _, err := os.Stat(outPath); err != nil {
		return &SynthesisError{
			Stderr: stderr.String(),
			Err:    fmt.Errorf("no audio written to %s: %w", outPath, err),
		}
	}

	return nil
}
