package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	oboidentity "github.com/chatgate/obo-identity"
	"github.com/chatgate/obo-identity/core"
	"github.com/chatgate/obo-identity/internal/config"
	"github.com/chatgate/obo-identity/outbound"
	"github.com/chatgate/obo-identity/session"
)

// gateway is the assembled HTTP surface and the resources it holds.
type gateway struct {
	handler http.Handler
	closers []func()
}

func (g *gateway) Close() {
	for i := len(g.closers) - 1; i >= 0; i-- {
		g.closers[i]()
	}
}

// buildGateway wires config into a ready handler. reg receives the
// identity metrics and is served on /metrics.
func buildGateway(ctx context.Context, cfg *config.Config, log *logrus.Logger, reg *prometheus.Registry) (*gateway, error) {
	g := &gateway{}
	logger := oboidentity.NewLogrusLogger(log)
	metrics := oboidentity.NewPrometheusMetrics(reg)

	store, err := openStore(ctx, cfg.Session, g)
	if err != nil {
		g.Close()
		return nil, err
	}

	coreOpts := []core.Option{core.WithLogger(logger), core.WithMetrics(metrics)}
	resolverOpts := coreOpts
	if cfg.Auth.EnablePasswordAuth {
		resolverOpts = append(resolverOpts, core.WithStaticSecret(cfg.Auth.PAT))
	}
	resolver, err := core.NewResolver(resolverOpts...)
	if err != nil {
		g.Close()
		return nil, fmt.Errorf("failed to create resolver: %w", err)
	}

	cookie := oboidentity.DefaultCookieConfig()
	cookie.Secure = cfg.Server.CookieSecure
	cookie.MaxAge = cfg.Session.TTL

	mwOpts := []oboidentity.Option{
		oboidentity.WithResolver(resolver),
		oboidentity.WithSessionStore(store),
		oboidentity.WithCookie(cookie),
		oboidentity.WithLogger(logger),
	}
	if cfg.HeaderAuthActive() {
		headerAuth, err := core.NewHeaderAuthenticator(coreOpts...)
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("failed to create header authenticator: %w", err)
		}
		mwOpts = append(mwOpts, oboidentity.WithHeaderAuthenticator(headerAuth))
		if len(cfg.Auth.TrustedProxies) > 0 {
			mwOpts = append(mwOpts, oboidentity.WithTrustedProxies(cfg.Auth.TrustedProxies...))
		}
	}
	if cfg.Auth.EnablePasswordAuth {
		passwordAuth, err := core.NewPasswordAuthenticator(cfg.Auth.Users, coreOpts...)
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("failed to create password authenticator: %w", err)
		}
		mwOpts = append(mwOpts, oboidentity.WithPasswordAuthenticator(passwordAuth))
	}

	mw, err := oboidentity.New(mwOpts...)
	if err != nil {
		g.Close()
		return nil, fmt.Errorf("failed to create identity middleware: %w", err)
	}

	mux := http.NewServeMux()
	mw.Register(mux)
	mux.Handle("/api/me", mw.RequireIdentity(http.HandlerFunc(meHandler)))
	if cfg.Downstream.URL != "" {
		client, err := outbound.NewClient(cfg.Downstream.URL, cfg.Downstream.Endpoint,
			outbound.WithTimeout(cfg.Downstream.Timeout),
			outbound.WithLogger(logger),
		)
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("failed to create downstream client: %w", err)
		}
		mux.Handle("/api/invoke", mw.RequireIdentity(invokeHandler(client, log)))
		log.WithField("url", client.URL()).Info("downstream invocations enabled")
	}
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	g.handler = mux
	return g, nil
}

func openStore(ctx context.Context, cfg config.SessionConfig, g *gateway) (session.Store, error) {
	switch cfg.Store {
	case config.StoreRedis:
		client, err := session.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		g.closers = append(g.closers, func() { _ = client.Close() })
		return session.NewRedisStore(client, session.DefaultRedisPrefix, cfg.TTL)
	case config.StorePostgres:
		pool, err := session.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		g.closers = append(g.closers, pool.Close)
		store, err := session.NewPostgresStore(pool, cfg.Table, cfg.TTL)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureTable(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return session.NewMemoryStore(cfg.TTL), nil
	}
}

func meHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, oboidentity.MustGetIdentity(r.Context()))
}

type invokeRequest struct {
	Messages []outbound.Message `json:"messages"`
}

func invokeHandler(client *outbound.Client, log logrus.FieldLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method_not_allowed"})
			return
		}

		var req invokeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
			return
		}

		identity := oboidentity.MustGetIdentity(r.Context())
		answer, err := client.Invoke(r.Context(), identity, req.Messages)
		if err != nil {
			var httpErr *outbound.HTTPError
			switch {
			case errors.Is(err, outbound.ErrNoBearerToken):
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing_bearer_token"})
			case errors.As(err, &httpErr):
				writeJSON(w, http.StatusBadGateway, map[string]any{
					"error":             "downstream_error",
					"downstream_status": httpErr.StatusCode,
				})
			default:
				log.WithError(err).WithField("user", identity.Email()).Error("downstream invocation failed")
				writeJSON(w, http.StatusBadGateway, map[string]string{"error": "downstream_unavailable"})
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(answer)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
