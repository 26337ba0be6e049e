// Package notify plays the short cue that marks the start of listening.
package notify

import (
	"context"
	"fmt"
	"io"
	"os"
)

type Player interface {
	PlayMP3(ctx context.Context, r io.Reader, volume float64) error
}

// Cue plays an mp3 file through a Player.
type Cue struct {
	path   string
	volume float64
	player Player
}

func NewCue(path string, volume float64, player Player) *Cue {
	return &Cue{path: path, volume: volume, player: player}
}

func (c *Cue) Play(ctx context.Context) error {
	f, err := os.Open(c.path)
	if err != nil {
		return fmt.Errorf("open cue: %w", err)
	}
	defer f.Close()

	if err := c.player.PlayMP3(ctx, f, c.volume); err != nil {
		return fmt.Errorf("play cue %s: %w", c.path, err)
	}
	return nil
}
