package client

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomz197/ciphertower/internal/identity"
	"github.com/tomz197/ciphertower/internal/loop/server"
)

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

type console struct {
	io.Reader
	io.Writer
}

// session drives a Client through a pipe.
type session struct {
	t    *testing.T
	pw   *io.PipeWriter
	out  *syncBuffer
	done chan error
}

func newEngine(t *testing.T, opts server.Options) (*server.Engine, *server.ManualScheduler) {
	t.Helper()
	sched := server.NewManualScheduler()
	opts.Scheduler = sched
	opts.PublicKey = "0x1"
	opts.Seed = 1
	if opts.Signer == nil {
		key, err := identity.NewEphemeralKey()
		if err != nil {
			t.Fatal(err)
		}
		opts.Signer = identity.NewToggle(key)
	}
	e := server.New(opts)
	t.Cleanup(e.Close)
	if err := e.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return e, sched
}

func startSession(t *testing.T, gs server.GameServer, opts ClientOptions) *session {
	t.Helper()
	pr, pw := io.Pipe()
	s := &session{t: t, pw: pw, out: &syncBuffer{}, done: make(chan error, 1)}
	c := NewClient(gs, console{pr, s.out}, opts)
	go func() { s.done <- c.Run(context.Background()) }()
	t.Cleanup(func() { pw.Close() })
	return s
}

func (s *session) send(line string) {
	s.t.Helper()
	if _, err := s.pw.Write([]byte(line + "\r")); err != nil {
		s.t.Fatalf("send %q: %v", line, err)
	}
}

func (s *session) waitCount(substr string, n int) {
	s.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Count(s.out.String(), substr) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	s.t.Fatalf("output never contained %q %d times:\n%s", substr, n, s.out.String())
}

func (s *session) waitFor(substr string) {
	s.t.Helper()
	s.waitCount(substr, 1)
}

func (s *session) quit() {
	s.t.Helper()
	s.send("quit")
	select {
	case err := <-s.done:
		if err != nil {
			s.t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		s.t.Fatal("Run did not return after quit")
	}
}

func TestBuildAndInspect(t *testing.T) {
	e, _ := newEngine(t, server.Options{})
	s := startSession(t, e, ClientOptions{Username: "tester"})

	s.waitFor("Signed in as tester.")
	s.send("start")
	s.waitFor("Wave 1 [pending]")
	s.send("place 0 0 sniper")
	s.waitFor("Built sniper tower #1 at (0,0). Gold: 40G")
	s.send("place 2 4")
	s.waitFor("Cannot build: invalid placement")
	s.send("tower 1")
	s.waitFor("upgrade 90G (not enough gold)  sell 42G")
	s.send("status")
	s.waitFor("Gold: 40G  Lives: 10  Wave: -/5  Identity: connected")
	s.send("sell 1")
	s.waitFor("Sold tower #1 for 42G. Gold: 82G")
	s.send("fly")
	s.waitFor("unknown command")
	s.quit()

	if got := e.Gold(); got != 82 {
		t.Errorf("engine gold = %v, want 82", got)
	}
}

func TestTutorialToggle(t *testing.T) {
	e, _ := newEngine(t, server.Options{})
	s := startSession(t, e, ClientOptions{})

	s.waitFor("Type start to play")
	s.send("tutorial")
	s.waitFor("1. Encrypted enemy paths")
	if e.Phase() != server.PhaseTutorial {
		t.Errorf("phase = %s, want tutorial", e.Phase())
	}
	s.send("tutorial")
	s.waitCount("Type start to play", 2)
	s.quit()
}

func TestDecryptCommand(t *testing.T) {
	e, _ := newEngine(t, server.Options{})
	s := startSession(t, e, ClientOptions{})

	s.send("start")
	s.waitFor("Wave 1 [pending]")
	s.send("decrypt 1")
	s.waitFor("Decrypting wave 1")
	s.waitFor("path: (0,4) (1,4) (2,4)")
	s.quit()

	in, ok := e.Intel(1)
	if !ok || in.Composition == nil {
		t.Errorf("intel = %+v, want composition revealed", in)
	}
}

func TestIdentityGatesWaves(t *testing.T) {
	e, _ := newEngine(t, server.Options{})
	s := startSession(t, e, ClientOptions{})

	s.send("start")
	s.waitFor("Wave 1 [pending]")
	s.send("disconnect")
	s.waitFor("Identity disconnected.")
	s.send("decrypt 1")
	s.waitFor("Decryption failed:")
	s.waitFor("authorization denied")
	s.send("wave 1")
	s.waitFor("Cannot start wave 1:")
	s.send("connect")
	s.waitFor("Identity connected.")
	s.send("wave 1")
	s.waitFor("Wave 1 started: 5 enemies")
	s.quit()
}

func TestDecryptRateLimited(t *testing.T) {
	e, _ := newEngine(t, server.Options{})
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	s := startSession(t, e, ClientOptions{Limiter: limiter})

	s.send("start")
	s.waitFor("Wave 1 [pending]")
	s.send("decrypt 1")
	s.send("decrypt 2")
	s.waitFor("Too many decrypt requests")
	s.quit()
}

// The console runs the defeat check when enemies break through.
func TestDefeatAfterLeak(t *testing.T) {
	e, sched := newEngine(t, server.Options{StartingLives: 1})
	s := startSession(t, e, ClientOptions{})

	s.send("start")
	s.waitFor("Wave 1 [pending]")
	s.send("wave 1")
	s.waitFor("Wave 1 started")

	deadline := time.Now().Add(2 * time.Second)
	for e.Phase() != server.PhaseOver && time.Now().Before(deadline) {
		sched.Fire()
		time.Sleep(2 * time.Millisecond)
	}
	if e.Phase() != server.PhaseOver || e.Outcome() != server.OutcomeDefeat {
		t.Fatalf("phase/outcome = %s/%s, want over/defeat", e.Phase(), e.Outcome())
	}
	s.waitFor("Game Over")
	s.waitFor("Type start to play again.")
	s.quit()
}

// mutedServer never delivers events, like a console whose buffer overflowed.
type mutedServer struct {
	*server.Engine
}

func (mutedServer) Subscribe() (<-chan server.Event, func()) {
	return make(chan server.Event), func() {}
}

func TestDefeatWithoutEvents(t *testing.T) {
	e, sched := newEngine(t, server.Options{StartingLives: 1})
	s := startSession(t, mutedServer{e}, ClientOptions{})

	s.send("start")
	s.waitFor("Wave 1 [pending]")
	s.send("wave 1")

	deadline := time.Now().Add(2 * time.Second)
	for e.CurrentWave() != 1 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	for e.Lives() > 0 && time.Now().Before(deadline) {
		sched.Fire()
	}
	if e.Lives() > 0 {
		t.Fatal("no enemy leaked")
	}
	if e.Phase() != server.PhasePlaying {
		t.Fatalf("phase = %s before the next command, want playing", e.Phase())
	}

	s.send("status")
	s.waitFor("Game Over")
	if e.Phase() != server.PhaseOver || e.Outcome() != server.OutcomeDefeat {
		t.Fatalf("phase/outcome = %s/%s, want over/defeat", e.Phase(), e.Outcome())
	}
	s.quit()
}
