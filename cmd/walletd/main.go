// ABOUTME: walletd is the registration and lookup backend for encrypted wallet records.
// ABOUTME: Stores opaque ciphertext in PocketBase and never sees passphrases or mnemonics.

package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/router"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "github.com/YAP-Technologies-Inc/Yap-landing/cmd/walletd/migrations" // Import migrations
)

// Server bundles state for walletd handlers.
type Server struct {
	app            core.App
	limiters       *rateLimiterStore // Per-IP rate limiting for record endpoints
	locks          *keyedMutex       // Serializes writes per normalized email
	log            zerolog.Logger
	now            func() time.Time
	auditRetention time.Duration
}

func newServer(app core.App, logger zerolog.Logger) *Server {
	return &Server{
		app:            app,
		limiters:       newRateLimiterStore(AuthRateLimitConfig()),
		locks:          newKeyedMutex(),
		log:            logger,
		now:            time.Now,
		auditRetention: defaultAuditRetention,
	}
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	app := pocketbase.New()
	srv := newServer(app, log.Logger.With().Str("component", "walletd").Logger())

	app.RootCmd.PersistentFlags().DurationVar(&srv.auditRetention, "audit-retention",
		defaultAuditRetention, "how long wallet_audit rows are kept (0 keeps them forever)")

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		srv.registerRoutes(se.Router)
		return se.Next()
	})

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		srv.startCleanupRoutine(context.Background())
		return se.Next()
	})

	if err := app.Start(); err != nil {
		log.Fatal().Err(err).Msg("walletd exited")
	}
}

func (s *Server) registerRoutes(r *router.Router[*core.RequestEvent]) {
	r.GET("/healthz", s.wrapHandler(s.handleHealth))

	r.GET("/v1/users", s.wrapHandler(s.withIPRateLimit(s.handleLookup)))
	r.POST("/v1/users", s.wrapHandler(s.withIPRateLimit(s.handleRegister)))
	r.PUT("/v1/users", s.wrapHandler(s.withIPRateLimit(s.handleReplace)))

	r.POST("/v1/waitlist", s.wrapHandler(s.withIPRateLimit(s.handleWaitlist)))
}

// wrapHandler converts http.HandlerFunc to PocketBase RequestHandler.
func (s *Server) wrapHandler(h http.HandlerFunc) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		h(e.Response, e.Request)
		return nil
	}
}

// withIPRateLimit applies per-IP rate limiting.
func (s *Server) withIPRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.limiters != nil {
			clientIP := getClientIP(r)
			if !s.limiters.get(clientIP).Allow() {
				s.log.Warn().Str("ip", clientIP).Str("path", r.URL.Path).Msg("rate limited")
				fail(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}
		next(w, r)
	}
}

type healthResp struct {
	OK   bool  `json:"ok"`
	Time int64 `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	ok(w, healthResp{OK: true, Time: s.now().Unix()})
}

// helpers

func ok(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}

func fail(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]any{"error": msg}); err != nil {
		log.Warn().Err(err).Msg("write error response")
	}
}

// emailHash keeps raw addresses out of logs and the audit table.
func emailHash(email string) string {
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}
