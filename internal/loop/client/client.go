package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/term"
	"golang.org/x/time/rate"

	"github.com/tomz197/ciphertower/internal/draw"
	"github.com/tomz197/ciphertower/internal/input"
	"github.com/tomz197/ciphertower/internal/loop/config"
	"github.com/tomz197/ciphertower/internal/loop/server"
)

// decryptTimeout bounds one decrypt command, signing prompts included.
const decryptTimeout = 2 * time.Minute

// Client is the line console of a single connection. It turns commands
// into engine calls and prints engine events as they arrive.
type Client struct {
	server   server.GameServer
	term     *term.Terminal
	out      *draw.ChunkWriter
	outMu    sync.Mutex
	limiter  *rate.Limiter
	log      *log.Logger
	username string
	running  bool
	wg       sync.WaitGroup

	// Set once the game over screen is printed for the current game.
	overShown atomic.Bool
}

// ClientOptions configures the client.
type ClientOptions struct {
	Username string
	Logger   *log.Logger
	// Limiter throttles decrypt commands. Defaults to one per
	// config.CommandRate with a burst of config.CommandBurst.
	Limiter *rate.Limiter
}

// NewClient creates a console reading commands from and writing to rw.
func NewClient(gs server.GameServer, rw io.ReadWriter, opts ClientOptions) *Client {
	limiter := opts.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(config.CommandRate), config.CommandBurst)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	t := term.NewTerminal(rw, "> ")
	return &Client{
		server:   gs,
		term:     t,
		out:      draw.NewChunkWriter(t),
		limiter:  limiter,
		log:      logger,
		username: opts.Username,
		running:  true,
	}
}

// SetSize updates the terminal dimensions used for line editing.
func (c *Client) SetSize(width, height int) error {
	return c.term.SetSize(width, height)
}

// Run reads commands until the player quits, the input ends or ctx is
// cancelled. Background work started by commands is waited for before
// returning.
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		c.wg.Wait()
	}()

	events, unsubscribe := c.server.Subscribe()
	defer unsubscribe()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.watchEvents(ctx, events)
	}()

	c.render(c.screen)

	for c.running {
		line, err := c.term.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		cmd, err := input.Parse(line)
		if err != nil {
			c.printf("%v\n", err)
			continue
		}
		c.execute(ctx, cmd)
	}
	return nil
}

// watchEvents prints engine events and runs the defeat check after every
// change to lives.
func (c *Client) watchEvents(ctx context.Context, events <-chan server.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.handleEvent(ev)
			c.checkDefeat()
		}
	}
}

func (c *Client) handleEvent(ev server.Event) {
	switch ev.Type {
	case server.EventWaveStarted:
		c.printf("Wave %d started: %d enemies on the move.\n", ev.Wave, ev.Count)
	case server.EventEnemiesDestroyed:
		c.printf("Towers destroyed %d enemies.\n", ev.Count)
	case server.EventEnemiesLeaked:
		c.printf("%d enemies broke through! Lives: %d\n", ev.Count, c.server.Snapshot().Lives)
	case server.EventTick:
		if ev.Count > 0 {
			c.printf("Wave %d: %d enemies remaining.\n", ev.Wave, ev.Count)
		}
	case server.EventWaveCompleted:
		c.printf("Wave %d completed! +%s\n", ev.Wave, draw.Gold(ev.Gold))
	case server.EventGameOver:
		c.showGameOver()
	}
}

// checkDefeat runs the engine's defeat boundary. Events can be dropped for
// a slow console, so it runs after every event and before every command.
// Reports whether the game is over.
func (c *Client) checkDefeat() bool {
	if c.server.CheckDefeat() {
		c.showGameOver()
		return true
	}
	return false
}

// showGameOver prints the game over screen once per game.
func (c *Client) showGameOver() {
	if c.server.Snapshot().Phase != server.PhaseOver || c.overShown.Swap(true) {
		return
	}
	c.render(c.gameOverScreen)
}

// execute runs one command.
func (c *Client) execute(ctx context.Context, cmd input.Command) {
	if cmd.Op != input.OpQuit && c.checkDefeat() {
		return
	}
	s := c.server.Snapshot()
	switch cmd.Op {
	case input.OpNone:
	case input.OpHelp:
		c.printf("Commands:\n%s", input.Help())
	case input.OpQuit:
		c.running = false
		c.printf("Bye!\n")
	case input.OpTutorial:
		c.toggleTutorial(s.Phase)
	case input.OpStart:
		if err := c.server.StartGame(); err != nil {
			c.printf("Cannot start: %v\n", err)
			return
		}
		c.overShown.Store(false)
		c.log.Info("game started", "user", c.username)
		c.render(c.playingScreen)
	case input.OpConnect:
		if err := c.server.Connect(); err != nil {
			c.printf("Connect failed: %v\n", err)
			return
		}
		c.printf("Identity connected.\n")
	case input.OpDisconnect:
		c.server.Disconnect()
		c.printf("Identity disconnected.\n")
	case input.OpBoard:
		c.render(c.boardScreen)
	case input.OpStatus:
		c.render(c.statusScreen)
	case input.OpWaves:
		c.render(func(w io.Writer) { draw.WaveList(w, s.Waves) })
	case input.OpShop:
		c.render(func(w io.Writer) { draw.Shop(w, s.Gold) })
	case input.OpStartWave:
		if err := c.server.StartWave(ctx, cmd.Wave); err != nil {
			c.printf("Cannot start wave %d: %v\n", cmd.Wave, err)
		}
	case input.OpDecrypt:
		c.decrypt(ctx, cmd.Wave)
	case input.OpIntel:
		n := cmd.Wave
		if n == 0 {
			n = s.Selected
		}
		c.showIntel(n)
	case input.OpPlace:
		t, err := c.server.PlaceTower(cmd.Cell, cmd.Kind)
		if err != nil {
			c.printf("Cannot build: %v\n", err)
			return
		}
		c.printf("Built %s tower #%d at %v. Gold: %s\n", t.Kind, t.ID, t.Cell, draw.Gold(c.server.Snapshot().Gold))
	case input.OpInspect:
		c.inspect(cmd.Tower)
	case input.OpUpgrade:
		t, err := c.server.UpgradeTower(cmd.Tower)
		if err != nil {
			c.printf("Cannot upgrade: %v\n", err)
			return
		}
		c.printf("Tower #%d is now level %d. Gold: %s\n", t.ID, t.Level, draw.Gold(c.server.Snapshot().Gold))
	case input.OpSell:
		refund, err := c.server.SellTower(cmd.Tower)
		if err != nil {
			c.printf("Cannot sell: %v\n", err)
			return
		}
		c.printf("Sold tower #%d for %s. Gold: %s\n", cmd.Tower, draw.Gold(refund), draw.Gold(c.server.Snapshot().Gold))
	}
}

func (c *Client) toggleTutorial(phase server.Phase) {
	var err error
	if phase == server.PhaseTutorial {
		if err = c.server.DismissTutorial(); err == nil {
			c.render(c.screen)
		}
	} else if err = c.server.ShowTutorial(); err == nil {
		c.render(draw.Tutorial)
	}
	if err != nil {
		c.printf("Tutorial unavailable: %v\n", err)
	}
}

// decrypt runs a decrypt request in the background so the console stays
// responsive while the identity signs. Requests are rate limited per
// console.
func (c *Client) decrypt(ctx context.Context, n int) {
	if !c.limiter.Allow() {
		c.printf("Too many decrypt requests, try again shortly.\n")
		return
	}
	c.printf("Decrypting wave %d, waiting for signatures...\n", n)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, decryptTimeout)
		defer cancel()
		_, err := c.server.DecryptWaveData(ctx, n)
		switch {
		case errors.Is(err, server.ErrSuperseded):
			return
		case err != nil:
			c.log.Warn("decrypt failed", "user", c.username, "wave", n, "err", err)
			c.printf("Decryption failed: %v\n", err)
		}
		c.showIntel(n)
	}()
}

func (c *Client) inspect(id int) {
	s := c.server.Snapshot()
	for _, t := range s.Towers {
		if t.ID == id {
			c.render(func(w io.Writer) { draw.TowerDetails(w, t, s.Gold) })
			return
		}
	}
	c.printf("No tower #%d.\n", id)
}

// printf writes a message through the terminal, which keeps the prompt
// and any partially typed line intact.
func (c *Client) printf(format string, args ...any) {
	c.render(func(w io.Writer) { fmt.Fprintf(w, format, args...) })
}

// render draws fn's output as one chunked write.
func (c *Client) render(fn func(w io.Writer)) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fn(c.out)
	if err := c.out.Flush(); err != nil {
		c.log.Debug("write failed", "user", c.username, "err", err)
	}
}
