package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"budgetrelay/internal/interfaces/scheduler"
	"budgetrelay/internal/shared/config"
	"budgetrelay/internal/shared/middleware"
)

// listeners owns the relay's HTTP servers. redirect is nil unless TLS is on
// and plain HTTP should bounce to HTTPS.
type listeners struct {
	api      *http.Server
	redirect *http.Server
	tls      *config.TLSConfig
	failed   chan error
}

func newListeners(handler http.Handler, cfg *config.Config) *listeners {
	l := &listeners{
		api: &http.Server{
			Addr:        cfg.Server.Host + ":" + cfg.Server.Port,
			Handler:     handler,
			ReadTimeout: 15 * time.Second,
			// /transactions may page for up to the sync timeout
			WriteTimeout: cfg.Sync.Timeout + 15*time.Second,
			IdleTimeout:  60 * time.Second,
		},
		failed: make(chan error, 2),
	}
	if cfg.TLS.Enabled {
		l.tls = &cfg.TLS
		if cfg.TLS.RedirectHTTP {
			l.redirect = &http.Server{
				Addr:         ":80",
				Handler:      redirectToHTTPS(cfg.Server.AllowedHosts),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}
		}
	}
	return l
}

// start serves in the background. A listener that dies reports on failed.
func (l *listeners) start() {
	if l.redirect != nil {
		go l.serve("redirect", l.redirect.ListenAndServe)
	}
	if l.tls != nil {
		go l.serve("https", func() error { return l.api.ListenAndServeTLS(l.tls.CertPath, l.tls.KeyPath) })
		return
	}
	go l.serve("http", l.api.ListenAndServe)
}

func (l *listeners) serve(name string, listen func() error) {
	addr := l.api.Addr
	if name == "redirect" {
		addr = l.redirect.Addr
	}
	log.Printf("Relay %s listener on %s", name, addr)
	if err := listen(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.failed <- fmt.Errorf("%s listener: %w", name, err)
	}
}

func (l *listeners) stop(ctx context.Context) {
	if l.redirect != nil {
		if err := l.redirect.Shutdown(ctx); err != nil {
			log.Printf("Redirect listener shutdown: %v", err)
		}
	}
	if err := l.api.Shutdown(ctx); err != nil {
		log.Printf("API listener shutdown: %v", err)
	}
}

// shutdown stops intake before draining background syncs, then flushes
// telemetry. Everything shares one deadline.
func shutdown(l *listeners, pool *scheduler.WorkerPool, flushTelemetry func(context.Context) error, timeout time.Duration) {
	log.Printf("Relay shutting down (deadline %s)", timeout)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	l.stop(ctx)
	if pool != nil {
		if err := pool.Shutdown(ctx); err != nil {
			log.Printf("Sync workers did not drain: %v", err)
		}
	}
	if flushTelemetry != nil {
		if err := flushTelemetry(ctx); err != nil {
			log.Printf("Telemetry flush: %v", err)
		}
	}
	log.Println("Relay stopped")
}

// redirectToHTTPS answers every plain-HTTP request with a 301 to the same
// path over HTTPS, for allowed hosts only.
func redirectToHTTPS(allowedHosts []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Header.Get("X-Forwarded-Host")
		if host == "" {
			host = r.Host
		}
		if !middleware.IsHostAllowed(host, allowedHosts) {
			http.Error(w, "Invalid host", http.StatusBadRequest)
			return
		}
		if strings.HasPrefix(host, "[") {
			if end := strings.Index(host, "]"); end != -1 {
				host = host[:end+1]
			}
		} else if name, _, found := strings.Cut(host, ":"); found {
			host = name
		}
		http.Redirect(w, r, "https://"+host+r.RequestURI, http.StatusMovedPermanently)
	})
}
