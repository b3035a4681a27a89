package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"golang.org/x/term"

	"github.com/tomz197/ciphertower/internal/cipher"
	"github.com/tomz197/ciphertower/internal/config"
	"github.com/tomz197/ciphertower/internal/draw"
	"github.com/tomz197/ciphertower/internal/identity"
	"github.com/tomz197/ciphertower/internal/ledger"
	"github.com/tomz197/ciphertower/internal/loop/client"
	lconfig "github.com/tomz197/ciphertower/internal/loop/config"
	"github.com/tomz197/ciphertower/internal/loop/server"
)

// console joins stdin and stdout for the line editor.
type console struct {
	io.Reader
	io.Writer
}

func main() {
	logger, closeLog, err := newLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	key, err := identity.NewEphemeralKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create identity: %v\n", err)
		os.Exit(1)
	}

	scheme, err := cipher.ByName(config.GetEnv("CIPHER_SCHEME", "tagged"), []byte(config.GetEnv("CIPHER_SECRET", "")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid CIPHER_SCHEME: %v\n", err)
		os.Exit(1)
	}

	eng := server.New(server.Options{
		Scheme: scheme,
		Signer: identity.NewToggle(key),
		Ledger: ledger.NewLocal(
			config.GetEnv("LEDGER_NAME", "ciphertower"),
			config.GetEnvInt("LEDGER_NETWORK", ledger.DefaultNetwork),
		),
		Logger:      logger,
		AuthLatency: config.GetEnvDuration("AUTH_LATENCY", lconfig.AuthLatency),
		Combat:      config.GetEnvBool("COMBAT", false),
	})
	defer eng.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := eng.Init(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start game: %v\n", err)
		os.Exit(1)
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to enable raw mode: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = term.Restore(fd, oldState)
	}()

	c := client.NewClient(eng, console{os.Stdin, os.Stdout}, client.ClientOptions{
		Username: key.Fingerprint(),
		Logger:   logger,
	})
	if w, h, err := draw.DefaultTermSizeFunc(); err == nil {
		_ = c.SetSize(w, h)
	}

	draw.ClearScreen(os.Stdout)
	if err := c.Run(ctx); err != nil {
		_ = term.Restore(fd, oldState)
		fmt.Fprintf(os.Stderr, "game error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger logs to LOG_FILE when set. The terminal is in raw mode while
// playing, so nothing is logged to it.
func newLogger() (*log.Logger, func(), error) {
	path := config.GetEnv("LOG_FILE", "")
	if path == "" {
		return log.New(io.Discard), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	logger := log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
		Level:           config.GetLogLevel("LOG_LEVEL", log.InfoLevel),
	})
	return logger, func() { f.Close() }, nil
}
