package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"pipernest/internal/platform"

	"github.com/sirupsen/logrus"
)

type PlayerType string

const (
	PlayerAuto    PlayerType = "auto"    // platform player, builtin when it is missing
	PlayerBuiltin PlayerType = "builtin" // in-process wav playback
)

func (p PlayerType) String() string {
	return string(p)
}

// Player plays a wav file to completion.
type Player interface {
	Play(ctx context.Context, path string) error
}

// NewPlayer selects a player. Anything other than auto or builtin is taken
// as the name of a command that accepts the wav path as its only argument.
func NewPlayer(kind string, profile platform.Profile, locator platform.ExecutableLocator) (Player, error) {
	if kind == "" {
		kind = PlayerAuto.String()
	}

	switch kind {
	case PlayerAuto.String():
		return bestPlayerForPlatform(profile, locator), nil

	case PlayerBuiltin.String():
		return &BeepPlayer{}, nil

	default:
		if locator != nil {
			if _, ok := locator.Locate(kind); !ok {
				return nil, fmt.Errorf("audio player %q not found in PATH", kind)
			}
		}
		return &CommandPlayer{Command: kind}, nil
	}
}

func bestPlayerForPlatform(profile platform.Profile, locator platform.ExecutableLocator) Player {
	if locator != nil {
		if _, ok := locator.Locate(profile.PlayerCommand); !ok {
			logrus.WithField("player", profile.PlayerCommand).Debug("Platform player missing, using builtin playback")
			return &BeepPlayer{}
		}
	}
	return &CommandPlayer{Command: profile.PlayerCommand, Args: profile.PlayerArgs}
}

// CommandPlayer plays audio through an external program.
type CommandPlayer struct {
	Command string
	Args    func(path string) []string
}

func (c *CommandPlayer) Play(ctx context.Context, path string) error {
	args := []string{path}
	if c.Args != nil {
		args = c.Args(path)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Command, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &PlaybackError{ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return &PlaybackError{ExitCode: -1, Stderr: stderr.String(), Err: err}
	}
	return nil
}
