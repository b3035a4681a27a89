package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	"github.com/charmbracelet/wish/logging"
	gossh "golang.org/x/crypto/ssh"

	"github.com/tomz197/ciphertower/internal/cipher"
	"github.com/tomz197/ciphertower/internal/config"
	"github.com/tomz197/ciphertower/internal/identity"
	"github.com/tomz197/ciphertower/internal/ledger"
	"github.com/tomz197/ciphertower/internal/loop/client"
	lconfig "github.com/tomz197/ciphertower/internal/loop/config"
	"github.com/tomz197/ciphertower/internal/loop/server"
	"github.com/tomz197/ciphertower/internal/spectate"
)

const (
	defaultHost         = "::"
	defaultPort         = "2222"
	defaultHostKeyPath  = "/app/keys/host_key"
	defaultSpectateAddr = ":8081"
	defaultLedgerName   = "ciphertower"
)

// app holds what every SSH session shares.
type app struct {
	logger      *log.Logger
	schemeName  string
	secret      []byte
	ledger      *ledger.Local
	registry    *spectate.Registry
	authLatency time.Duration
	combat      bool
	sessions    sync.WaitGroup
}

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "ciphertower",
		Level:           config.GetLogLevel("LOG_LEVEL", log.InfoLevel),
	})

	host := config.GetEnv("SSH_HOST", defaultHost)
	port := config.GetEnv("SSH_PORT", defaultPort)
	hostKeyPath := config.GetEnv("SSH_HOST_KEY", defaultHostKeyPath)
	spectateAddr := config.GetEnv("SPECTATE_ADDR", defaultSpectateAddr)

	a := &app{
		logger: logger,
		ledger: ledger.NewLocal(
			config.GetEnv("LEDGER_NAME", defaultLedgerName),
			config.GetEnvInt("LEDGER_NETWORK", ledger.DefaultNetwork),
		),
		schemeName:  config.GetEnv("CIPHER_SCHEME", "tagged"),
		secret:      []byte(config.GetEnv("CIPHER_SECRET", "")),
		registry:    spectate.NewRegistry(),
		authLatency: config.GetEnvDuration("AUTH_LATENCY", lconfig.AuthLatency),
		combat:      config.GetEnvBool("COMBAT", false),
	}
	a.ledger.SetOpen(config.GetEnvBool("LEDGER_OPEN", true))
	if _, err := cipher.ByName(a.schemeName, nil); err != nil {
		logger.Fatal("invalid CIPHER_SCHEME", "err", err)
	}
	logger.Info("config", "host", host, "port", port, "hostKey", hostKeyPath,
		"spectate", spectateAddr, "scheme", a.schemeName, "authLatency", a.authLatency, "combat", a.combat)

	opts := []ssh.Option{
		wish.WithAddress(net.JoinHostPort(host, port)),
		// Any key is accepted; it becomes the player's identity.
		wish.WithPublicKeyAuth(func(ctx ssh.Context, key ssh.PublicKey) bool {
			return true
		}),
		// Players without a key can still look around, but cannot sign.
		wish.WithKeyboardInteractiveAuth(func(ctx ssh.Context, challenger gossh.KeyboardInteractiveChallenge) bool {
			return true
		}),
		wish.WithMiddleware(
			a.gameMiddleware,
			activeterm.Middleware(),
			logging.MiddlewareWithLogger(logger),
		),
		// Set TCP_NODELAY so console echo is not delayed
		ssh.WrapConn(func(ctx ssh.Context, conn net.Conn) net.Conn {
			if tcpConn, ok := conn.(*net.TCPConn); ok {
				_ = tcpConn.SetNoDelay(true)
			}
			return conn
		}),
	}
	if hostKeyPath != "" {
		opts = append(opts, wish.WithHostKeyPath(hostKeyPath))
	}

	s, err := wish.NewServer(opts...)
	if err != nil {
		logger.Fatal("failed to create server", "err", err)
	}

	var web *http.Server
	if spectateAddr != "" {
		web = &http.Server{
			Addr:              spectateAddr,
			Handler:           spectate.NewHandler(a.registry, spectate.HandlerConfig{Logger: logger.WithPrefix("spectate")}).Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("starting spectator server", "addr", spectateAddr)
			if err := web.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("spectator server error", "err", err)
			}
		}()
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("starting SSH server", "addr", net.JoinHostPort(host, port))
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			logger.Fatal("server error", "err", err)
		}
	}()

	<-done
	logger.Info("shutting down", "games", a.registry.Len())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if web != nil {
		if err := web.Shutdown(ctx); err != nil {
			logger.Error("spectator shutdown error", "err", err)
		}
	}
	if err := s.Shutdown(ctx); err != nil {
		logger.Fatal("shutdown error", "err", err)
	}
	a.sessions.Wait()
}

// gameMiddleware runs one game per SSH session.
func (a *app) gameMiddleware(next ssh.Handler) ssh.Handler {
	return func(sess ssh.Session) {
		a.sessions.Add(1)
		defer a.sessions.Done()

		pty, winCh, ok := sess.Pty()
		if !ok {
			fmt.Fprintln(sess, "Error: PTY required. Please connect with: ssh -t user@host")
			return
		}

		logger := a.logger.With("user", sess.User(), "remote", sess.RemoteAddr().String())
		logger.Info("new game session", "term", pty.Term, "width", pty.Window.Width, "height", pty.Window.Height)

		signer := identity.NewToggle(a.agentSigner(sess, logger))
		if !signer.Connected() {
			fmt.Fprintln(sess, "No forwarded identity. Reconnect with: ssh -A to sign wave transactions.")
		}

		// Without CIPHER_SECRET every session gets its own random key.
		scheme, err := cipher.ByName(a.schemeName, a.secret)
		if err != nil {
			logger.Error("cipher scheme", "err", err)
			return
		}

		eng := server.New(server.Options{
			Scheme:      scheme,
			Signer:      signer,
			Ledger:      a.ledger,
			Logger:      logger,
			AuthLatency: a.authLatency,
			Combat:      a.combat,
		})
		defer eng.Close()
		if err := eng.Init(sess.Context()); err != nil {
			logger.Error("init failed", "err", err)
			fmt.Fprintln(sess, "Error: could not start game.")
			return
		}

		id := a.registry.Register(sess.User(), eng)
		defer a.registry.Unregister(id)
		logger = logger.With("game", id)
		logger.Info("game registered for spectators")

		c := client.NewClient(eng, sess, client.ClientOptions{
			Username: sess.User(),
			Logger:   logger,
		})
		_ = c.SetSize(pty.Window.Width, pty.Window.Height)
		go func() {
			for win := range winCh {
				_ = c.SetSize(win.Width, win.Height)
			}
		}()

		if err := c.Run(sess.Context()); err != nil {
			logger.Error("game error", "err", err)
		}

		logger.Info("session ended", "phase", eng.Phase(), "wave", eng.CurrentWave())
		next(sess)
	}
}

// agentSigner returns a signer backed by the session's forwarded agent.
// Without a public key or agent forwarding the signer is never connected.
func (a *app) agentSigner(sess ssh.Session, logger *log.Logger) *identity.Agent {
	key := sess.PublicKey()
	if key == nil {
		return identity.NewAgent(nil, nil)
	}
	if !ssh.AgentRequested(sess) {
		logger.Debug("agent forwarding not requested")
		return identity.NewAgent(key, nil)
	}

	l, err := ssh.NewAgentListener()
	if err != nil {
		logger.Warn("agent listener failed", "err", err)
		return identity.NewAgent(key, nil)
	}
	go func() {
		<-sess.Context().Done()
		l.Close()
	}()
	go ssh.ForwardAgentConnections(l, sess)

	addr := l.Addr().String()
	logger.Debug("agent forwarded", "socket", addr, "key", gossh.FingerprintSHA256(key))
	return identity.NewAgent(key, func() (net.Conn, error) {
		return net.Dial("unix", addr)
	})
}
