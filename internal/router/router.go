package router

import (
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-ledger-go/internal/account"
	accountrepo "github.com/ovaphlow/pitchfork/service-ledger-go/internal/account/repo"
	"github.com/ovaphlow/pitchfork/service-ledger-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-ledger-go/internal/transaction"
	transactionrepo "github.com/ovaphlow/pitchfork/service-ledger-go/internal/transaction/repo"
	"github.com/ovaphlow/pitchfork/service-ledger-go/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-ledger-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-ledger-go/pkg/config"
	"github.com/ovaphlow/pitchfork/service-ledger-go/pkg/utilities"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware returns a middleware that logs requests at debug level
// using the provided sugared logger, tagging each request with a KSUID.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := utilities.NewRequestID()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			// ensure status is set
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
// It is intentionally simple and conservative so it works with most setups.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, db *sqlx.DB, cfg config.App) http.Handler {
	tokens := auth.NewManager(cfg.JWTSecret, time.Duration(cfg.JWTExpireMin)*time.Minute)

	userSvc := user.NewService(userrepo.NewUserRepo(db), tokens, nil)
	userHandler := user.NewHandler(userSvc, logger)

	accountSvc := account.NewService(accountrepo.NewAccountRepo(db))
	accountHandler := account.NewHandler(accountSvc, logger)

	ledger := transactionrepo.NewLedgerStore(db)
	transferSvc := transaction.NewService(ledger, ledger)
	transferHandler := transaction.NewHandler(transferSvc, logger)

	mux := http.NewServeMux()

	// health
	mux.HandleFunc("GET /ledger-api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// public auth routes
	mux.HandleFunc("POST /ledger-api/auth/register", userHandler.Register)
	mux.HandleFunc("POST /ledger-api/auth/login", userHandler.Login)

	authed := func(h http.HandlerFunc) http.Handler {
		return tokens.RequireAuth(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return tokens.RequireAuth(auth.RequireAdmin(h))
	}

	// profile
	mux.Handle("GET /ledger-api/users/me", authed(userHandler.Me))

	// accounts
	mux.Handle("POST /ledger-api/accounts", admin(accountHandler.Create))
	mux.Handle("DELETE /ledger-api/accounts/{id}", admin(accountHandler.Delete))
	mux.Handle("GET /ledger-api/accounts/{id}", authed(accountHandler.Get))
	mux.Handle("GET /ledger-api/accounts", authed(accountHandler.ListOwn))
	mux.Handle("GET /ledger-api/admin/accounts", admin(accountHandler.ListAll))

	// transactions
	mux.Handle("POST /ledger-api/transactions", authed(transferHandler.Create))
	mux.Handle("GET /ledger-api/transactions/{id}", authed(transferHandler.Get))
	mux.Handle("GET /ledger-api/transactions", authed(transferHandler.ListOwn))
	mux.Handle("GET /ledger-api/admin/transactions", admin(transferHandler.ListAll))

	// wrap with security headers middleware then logging middleware
	handler := LoggingMiddleware(logger)(SecurityHeadersMiddleware()(mux))
	return handler
}
