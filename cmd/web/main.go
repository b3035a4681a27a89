package main

import (
	_ "embed"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tomz197/ciphertower/internal/config"
)

const (
	defaultHost = "0.0.0.0"
	defaultPort = "8080"
)

//go:embed index.html
var htmlPage string

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "web",
		Level:           config.GetLogLevel("LOG_LEVEL", log.InfoLevel),
	})

	host := config.GetEnv("WEB_HOST", defaultHost)
	port := config.GetEnv("WEB_PORT", defaultPort)
	page := strings.NewReplacer(
		"{{.SSHHost}}", config.GetEnv("SSH_DISPLAY_HOST", "your-server.com"),
		"{{.SSHPort}}", config.GetEnv("SSH_DISPLAY_PORT", "2222"),
		"{{.SpectateURL}}", config.GetEnv("SPECTATE_PUBLIC_URL", "http://localhost:8081"),
	).Replace(htmlPage)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, page)
	})

	addr := net.JoinHostPort(host, port)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	logger.Info("starting web server", "addr", "http://"+addr)
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal("server error", "err", err)
	}
}
