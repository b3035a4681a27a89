package client

import (
	"fmt"
	"io"

	"github.com/tomz197/ciphertower/internal/draw"
	"github.com/tomz197/ciphertower/internal/loop/server"
	"github.com/tomz197/ciphertower/internal/object"
)

// screen draws whatever fits the current phase.
func (c *Client) screen(w io.Writer) {
	s := c.server.Snapshot()
	switch s.Phase {
	case server.PhaseLoading:
		fmt.Fprintln(w, "Initializing encrypted game...")
	case server.PhaseTutorial:
		draw.Tutorial(w)
	case server.PhaseNotStarted:
		draw.ClearScreen(w)
		draw.Title(w)
		if c.username != "" {
			fmt.Fprintf(w, "Signed in as %s.\n", c.username)
		}
	case server.PhasePlaying:
		c.playingScreen(w)
	case server.PhaseOver:
		c.gameOverScreen(w)
	}
}

// playingScreen draws the status line, the board and the wave list.
func (c *Client) playingScreen(w io.Writer) {
	s := c.server.Snapshot()
	drawStatus(w, s)
	c.boardScreen(w)
	draw.WaveList(w, s.Waves)
	if !s.Connected {
		fmt.Fprintln(w, "Identity disconnected: type connect to sign decrypts and start waves.")
	}
}

// boardScreen draws the board with the active wave's enemies.
func (c *Client) boardScreen(w io.Writer) {
	s := c.server.Snapshot()
	var enemies []*object.Enemy
	if wave, ok := s.ActiveWave(); ok {
		enemies = wave.Enemies
	}
	if err := draw.Board(w, draw.BoardView{Towers: s.Towers, Enemies: enemies}); err != nil {
		c.log.Debug("draw board", "err", err)
	}
}

// statusScreen draws the status line, towers and live enemies.
func (c *Client) statusScreen(w io.Writer) {
	s := c.server.Snapshot()
	drawStatus(w, s)
	fmt.Fprintln(w, "Towers:")
	draw.Towers(w, s.Towers)
	if wave, ok := s.ActiveWave(); ok {
		fmt.Fprintf(w, "Wave %d enemies:\n", wave.Number)
		draw.Enemies(w, wave.Enemies)
	}
}

func (c *Client) gameOverScreen(w io.Writer) {
	s := c.server.Snapshot()
	draw.GameOver(w, draw.GameOverView{
		Victory:   s.Outcome == server.OutcomeVictory,
		Completed: s.CompletedWaves(),
		Waves:     len(s.Waves),
		Towers:    len(s.Towers),
		Gold:      s.Gold,
		Lives:     s.Lives,
	})
}

// showIntel draws the wave info panel for wave n.
func (c *Client) showIntel(n int) {
	s := c.server.Snapshot()
	wave, ok := s.Wave(n)
	if !ok {
		c.printf("No wave selected, type decrypt <n> first.\n")
		return
	}
	in := s.Intel[n]
	c.render(func(w io.Writer) {
		draw.Intel(w, draw.IntelView{
			Wave:        wave,
			Path:        in.Path,
			Composition: in.Composition,
			Decrypting:  in.Decrypting,
			Err:         in.Err,
		})
	})
}

func drawStatus(w io.Writer, s *server.Snapshot) {
	draw.Status(w, draw.StatusView{
		Gold:      s.Gold,
		Lives:     s.Lives,
		Wave:      s.CurrentWave,
		Waves:     len(s.Waves),
		Connected: s.Connected,
	})
}
