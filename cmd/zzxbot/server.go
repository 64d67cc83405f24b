package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cubewhy/ZzxBot/automod"
	"github.com/cubewhy/ZzxBot/automod/blacklist"
	"github.com/cubewhy/ZzxBot/automod/command"
	"github.com/cubewhy/ZzxBot/automod/countstore"
	"github.com/cubewhy/ZzxBot/automod/engine"
	"github.com/cubewhy/ZzxBot/automod/event"
	"github.com/cubewhy/ZzxBot/automod/identity"
	"github.com/cubewhy/ZzxBot/automod/policystore"
	"github.com/cubewhy/ZzxBot/automod/rename"
	"github.com/cubewhy/ZzxBot/automod/rules"
	"github.com/cubewhy/ZzxBot/onebot"
	"github.com/cubewhy/ZzxBot/onebot/cqcode"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

const (
	policyFile    = "config.json"
	blacklistFile = "black-list.json"

	// upper bound on how long a single inbound event may take, including platform actions
	eventTimeout = 2 * time.Minute
)

type Server struct {
	logger *slog.Logger
	engine *automod.Engine
	router *command.Router
	client *onebot.Client
	rdb    *redis.Client

	inflight sync.WaitGroup
}

type Config struct {
	OneBotURL          string
	OneBotToken        string
	OneBotRateLimit    float64
	ConfigDir          string
	RedisURL           string
	SlackWebhookURL    string
	RenameDelay        time.Duration
	RebanKeepTimestamp bool
	Logger             *slog.Logger
}

func NewServer(ctx context.Context, config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	if !strings.HasPrefix(config.OneBotURL, "ws") {
		return nil, fmt.Errorf("specified onebot URL must include 'ws://' or 'wss://'")
	}
	client := onebot.NewClient(config.OneBotURL, config.OneBotToken, logger)
	if config.OneBotRateLimit > 0 {
		client.Limiter = rate.NewLimiter(rate.Limit(config.OneBotRateLimit), max(1, int(config.OneBotRateLimit)))
	}

	if err := os.MkdirAll(config.ConfigDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}
	policies, err := policystore.NewJSONPolicyStore(filepath.Join(config.ConfigDir, policyFile))
	if err != nil {
		return nil, fmt.Errorf("loading policy document: %w", err)
	}
	if err := rules.RegisterModules(ctx, policies); err != nil {
		return nil, err
	}
	reban := blacklist.RebanRefresh
	if config.RebanKeepTimestamp {
		reban = blacklist.RebanKeepOriginal
	}
	bl, err := blacklist.NewJSONBlacklistStore(filepath.Join(config.ConfigDir, blacklistFile), reban)
	if err != nil {
		return nil, fmt.Errorf("loading blacklist: %w", err)
	}

	var counters countstore.CountStore
	var dir identity.Directory
	var rdb *redis.Client
	if config.RedisURL != "" {
		opt, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %v", err)
		}
		rdb = redis.NewClient(opt)
		rcs, err := countstore.NewRedisCountStore(ctx, rdb)
		if err != nil {
			return nil, err
		}
		counters = rcs
		rdir, err := identity.NewRedisDirectory(client, rdb, 24*time.Hour, 2*time.Minute, 10_000)
		if err != nil {
			return nil, err
		}
		dir = rdir
	} else {
		counters = countstore.NewMemCountStore()
		dir = identity.NewCacheDirectory(client, 10_000, 24*time.Hour, 2*time.Minute)
	}

	notifiers := []engine.Notifier{
		&engine.GroupNotifier{Sink: client, Policies: policies},
	}
	if config.SlackWebhookURL != "" {
		notifiers = append(notifiers, engine.NewSlackNotifier(config.SlackWebhookURL, logger))
	}

	eng := automod.Engine{
		Logger:    logger,
		Policies:  policies,
		Blacklist: bl,
		Directory: dir,
		Counters:  counters,
		Sink:      client,
		Rules:     rules.DefaultRules(),
		Renames:   rename.NewRunner(client, policies, logger, config.RenameDelay),
		Notifiers: notifiers,
	}

	router := command.NewRouter(&eng)
	router.JobContext = ctx

	return &Server{
		logger: logger,
		engine: &eng,
		router: router,
		client: client,
		rdb:    rdb,
	}, nil
}

func (s *Server) RunMetrics(ctx context.Context, listen string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/_health", s.HandleHealthCheck)
	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"msg,omitempty"`
}

// Reports unhealthy while the OneBot connection is down.
func (s *Server) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	status, code := HealthStatus{Status: "ok"}, http.StatusOK
	if s.client == nil || !s.client.Connected() {
		status, code = HealthStatus{Status: "error", Message: "not connected to onebot"}, http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Warn("failed to write health status", "err", err)
	}
}

// Maintains the OneBot connection until the context is cancelled.
func (s *Server) RunClient(ctx context.Context) error {
	return s.client.Run(ctx)
}

// Dispatches inbound events, one goroutine each, until the context is cancelled.
func (s *Server) Consume(ctx context.Context) error {
	return s.consume(ctx, s.client.Events())
}

func (s *Server) consume(ctx context.Context, events <-chan event.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-events:
			s.inflight.Add(1)
			eventsInFlight.Inc()
			go func() {
				defer s.inflight.Done()
				defer eventsInFlight.Dec()
				// in-flight events finish their actions during shutdown
				ectx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventTimeout)
				defer cancel()
				s.HandleEvent(ectx, evt)
			}()
		}
	}
}

// Runs the moderation engine over an event, then the operator command router (for messages).
//
// Moderation runs first, so that a command prefix never exempts a message from the filters.
func (s *Server) HandleEvent(ctx context.Context, evt event.Event) {
	ctx, span := tracer.Start(ctx, "HandleEvent")
	defer span.End()
	span.SetAttributes(attribute.String("kind", evt.Kind()))
	eventsHandled.WithLabelValues(evt.Kind()).Inc()

	if err := s.engine.ProcessEvent(ctx, evt); err != nil {
		eventsFailed.WithLabelValues(evt.Kind()).Inc()
		s.logger.Error("failed to process event", "kind", evt.Kind(), "err", err)
	}

	msg, ok := evt.(*event.MessageEvent)
	if !ok {
		return
	}
	req := command.Request{
		GroupID: msg.GroupID,
		UserID:  msg.UserID,
		SelfID:  msg.SelfID,
		Text:    msg.Text,
	}
	s.router.Handle(ctx, req, s.replier(msg))
}

// Replies go back to where the message came from. Text is escaped, since replies echo user-supplied values.
func (s *Server) replier(msg *event.MessageEvent) command.Replier {
	sink := s.engine.Sink
	if msg.InGroup() {
		gid := msg.GroupID
		return func(ctx context.Context, text string) error {
			return sink.SendGroupMessage(ctx, gid, cqcode.Escape(text))
		}
	}
	uid := msg.UserID
	return func(ctx context.Context, text string) error {
		return sink.SendDirectMessage(ctx, uid, cqcode.Escape(text))
	}
}

// Waits for in-flight events and background command jobs, then releases resources.
func (s *Server) Shutdown() {
	s.inflight.Wait()
	s.router.Wait()
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			s.logger.Warn("closing redis client", "err", err)
		}
	}
}
