package main

import (
	"context"
	"crypto/tls"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/quic-go/quic-go/http3"
	"github.com/quic-go/webtransport-go"

	"github.com/asciichat/fanout/internal/fanout"
	"github.com/asciichat/fanout/internal/fanout/registry"
	"github.com/asciichat/fanout/internal/transport"
)

// clientAdder is the subset of *registry.Registry the listener needs; kept
// as an interface so tests can substitute a fake without a real registry.
type clientAdder interface {
	Add(t fanout.Transport) (uint32, error)
}

var _ clientAdder = (*registry.Registry)(nil)

// server terminates both transports this fanout speaks on one TLS
// certificate: WebSocket at /ws over plain HTTPS, and WebTransport at /wt
// over HTTP/3, grounded on the teacher's Server (server.go) generalized
// from one protocol to two per the spec's dual-transport requirement.
type server struct {
	addr        string
	tlsConfig   *tls.Config
	registry    clientAdder
	idleTimeout time.Duration
}

func newServer(addr string, tlsConfig *tls.Config, reg clientAdder, idleTimeout time.Duration) *server {
	return &server{addr: addr, tlsConfig: tlsConfig, registry: reg, idleTimeout: idleTimeout}
}

// Run starts the HTTPS+WebSocket and HTTP/3+WebTransport listeners and
// blocks until ctx is canceled or either fails to start.
func (s *server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1 << 16,
		WriteBufferSize: 1 << 16,
		CheckOrigin:     func(_ *http.Request) bool { return true },
	}

	wts := &webtransport.Server{
		H3: http3.Server{
			Addr:      s.addr,
			TLSConfig: s.tlsConfig,
		},
		CheckOrigin: func(_ *http.Request) bool { return true },
	}

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[server] websocket upgrade failed: %v", err)
			return
		}
		t := transport.NewWSTransport(conn, r.RemoteAddr)
		if _, err := s.registry.Add(t); err != nil {
			log.Printf("[server] registry add (ws %s): %v", r.RemoteAddr, err)
			_ = t.Close()
		}
	})

	mux.HandleFunc("/wt", func(w http.ResponseWriter, r *http.Request) {
		sess, err := wts.Upgrade(w, r)
		if err != nil {
			log.Printf("[server] webtransport upgrade failed: %v", err)
			return
		}
		t, err := transport.NewWTServerTransport(ctx, sess, r.RemoteAddr)
		if err != nil {
			log.Printf("[server] webtransport control stream (%s): %v", r.RemoteAddr, err)
			_ = sess.CloseWithError(0, "no control stream")
			return
		}
		if _, err := s.registry.Add(t); err != nil {
			log.Printf("[server] registry add (wt %s): %v", r.RemoteAddr, err)
			_ = t.Close()
		}
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("asciichatd fanout server"))
	})
	wts.H3.Handler = mux

	httpSrv := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		TLSConfig:         s.tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       s.idleTimeout,
	}

	errCh := make(chan error, 2)
	go func() {
		err := httpSrv.ListenAndServeTLS("", "")
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	go func() {
		err := wts.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	log.Printf("[server] listening on %s (ws=/ws, webtransport=/wt)", s.addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutCtx); err != nil {
		log.Printf("[server] http shutdown: %v", err)
	}
	if err := wts.Close(); err != nil {
		log.Printf("[server] webtransport shutdown: %v", err)
	}
	return nil
}
