// Command asciichatd is the fanout server process: it terminates
// WebSocket and WebTransport connections, hands each one to the client
// registry, and serves an admin HTTP surface alongside it. Grounded on the
// teacher's server/main.go: flag parsing into a single config struct,
// context-cancel-on-signal graceful shutdown, background ticker
// goroutines, and a conditional test-bot/API-server launch ahead of the
// final blocking listener.
package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/asciichat/fanout/internal/adminhttp"
	"github.com/asciichat/fanout/internal/config"
	"github.com/asciichat/fanout/internal/fanout/asciiencoder"
	"github.com/asciichat/fanout/internal/fanout/registry"
	"github.com/asciichat/fanout/internal/ledger"
	"github.com/asciichat/fanout/internal/tlscert"
	"github.com/asciichat/fanout/internal/tonebot"
	"github.com/asciichat/fanout/internal/transport"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Fatalf("[asciichatd] %v", err)
	}

	led, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		log.Fatalf("[ledger] %v", err)
	}
	defer led.Close()

	hostname := ""
	if host, _, err := net.SplitHostPort(cfg.ListenAddr); err == nil && host != "" {
		hostname = host
	}

	tlsConfig, fingerprint, err := tlscert.Generate(cfg.CertValidity, hostname)
	if err != nil {
		log.Fatalf("[asciichatd] %v", err)
	}
	log.Printf("[asciichatd] TLS certificate fingerprint: %s", fingerprint)

	reg := registry.New(cfg, asciiencoder.DefaultConverter{}, led)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		log.Println("[asciichatd] shutting down...")
		cancel()
	}()

	startTime := time.Now()

	if cfg.APIAddr != "" {
		admin := adminhttp.New(reg, led, startTime)
		go func() {
			if err := admin.Run(ctx, cfg.APIAddr); err != nil {
				log.Printf("[adminhttp] %v", err)
			}
		}()
		log.Printf("[adminhttp] listening on %s", cfg.APIAddr)
	}

	if cfg.TestBotName != "" {
		botSide, regSide := transport.NewPipePair(cfg.TestBotName, cfg.TestBotName+"-server-side")
		id, err := reg.Add(regSide)
		if err != nil {
			log.Printf("[testbot] registry add: %v", err)
		} else {
			go tonebot.Run(ctx, botSide, tonebot.Config{ClientID: id, FreqHz: cfg.TestBotFreq})
			log.Printf("[testbot] %q streaming a %.0f Hz tone as client %d", cfg.TestBotName, cfg.TestBotFreq, id)
		}
	}

	srv := newServer(cfg.ListenAddr, tlsConfig, reg, cfg.IdleTimeout)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("[asciichatd] %v", err)
	}

	reg.Shutdown()
}
