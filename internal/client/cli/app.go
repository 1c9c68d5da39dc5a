package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/finkeeper/internal/client/cache"
	"github.com/dmitrijs2005/finkeeper/internal/client/client"
	"github.com/dmitrijs2005/finkeeper/internal/client/config"
	"github.com/dmitrijs2005/finkeeper/internal/client/credentials"
	"github.com/dmitrijs2005/finkeeper/internal/client/netmon"
	"github.com/dmitrijs2005/finkeeper/internal/client/queue"
	"github.com/dmitrijs2005/finkeeper/internal/client/services"
	"github.com/dmitrijs2005/finkeeper/internal/client/store"
	"github.com/dmitrijs2005/finkeeper/internal/client/syncer"
	"github.com/dmitrijs2005/finkeeper/internal/logging"
	"github.com/dmitrijs2005/finkeeper/internal/metrics"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// ErrCacheDisabled is returned by commands that need the local store while
// it is unavailable.
var ErrCacheDisabled = errors.New("local cache is disabled")

// Deps are the collaborators of an App. Zero fields get defaults where one
// makes sense.
type Deps struct {
	Config   *config.Config
	Logger   logging.Logger
	Metrics  *metrics.Collector
	API      client.Client
	Sessions services.SessionStore
	Store    *store.Store
	Now      func() time.Time
	In       io.Reader
	Out      io.Writer
}

type App struct {
	cfg     *config.Config
	log     logging.Logger
	metrics *metrics.Collector

	api      client.Client
	auth     services.AuthService
	sessions services.SessionStore
	store    *store.Store

	// nil while the cache is disabled
	cache *cache.Manager
	queue *queue.Queue
	sync  *syncer.Coordinator

	net *netmon.Monitor

	reader   *bufio.Reader
	out      io.Writer
	userName string
}

// NewApp opens the store, probes the server once and resumes the stored
// session when the server is reachable.
func NewApp(ctx context.Context, d Deps) *App {
	if d.Logger == nil {
		d.Logger = logging.Nop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.In == nil {
		d.In = os.Stdin
	}
	if d.Out == nil {
		d.Out = os.Stdout
	}

	a := &App{
		cfg:      d.Config,
		log:      d.Logger.With("module", "cli"),
		metrics:  d.Metrics,
		api:      d.API,
		sessions: d.Sessions,
		store:    d.Store,
		reader:   bufio.NewReader(d.In),
		out:      d.Out,
	}
	a.auth = services.NewAuthService(d.API, d.Sessions, d.Logger)
	a.net = netmon.New(d.API, d.Config.OnlineCheckInterval, netmon.WithLogger(d.Logger))

	if _, err := d.Store.Open(ctx); err != nil {
		a.log.Warn(ctx, "cache disabled", "error", err)
	} else {
		a.cache = cache.New(d.Store,
			cache.WithClock(d.Now),
			cache.WithDefaultTTL(d.Config.CacheTTL),
			cache.WithMetrics(d.Metrics),
			cache.WithLogger(d.Logger))
		a.queue = queue.New(d.Store,
			queue.WithClock(d.Now),
			queue.WithMetrics(d.Metrics),
			queue.WithLogger(d.Logger))
		a.sync = syncer.New(d.API, d.Store, a.cache, a.queue, a.net,
			syncer.WithClock(d.Now),
			syncer.WithMetrics(d.Metrics),
			syncer.WithLogger(d.Logger))

		a.net.OnOnline(func(ctx context.Context) {
			if err := a.sync.SyncPendingOperations(ctx); err != nil {
				a.log.Warn(ctx, "sync after reconnect failed", "error", err)
			}
		})
	}

	if a.net.Init(ctx) {
		a.resume(ctx)
	} else if sess, err := d.Sessions.Load(); err == nil {
		a.userName = sess.Username
	}
	return a
}

func (a *App) resume(ctx context.Context) {
	name, err := a.auth.Resume(ctx)
	switch {
	case err == nil:
		a.userName = name
	case errors.Is(err, credentials.ErrNoSession):
	case errors.Is(err, client.ErrUnauthorized):
		a.log.Warn(ctx, "session expired, please log in again")
	default:
		a.userName = name
		a.log.Warn(ctx, "cannot resume session", "error", err)
	}
}

// Build wires an App from configuration with the real keyring, gRPC client
// and SQLite store.
func Build(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) (*App, error) {
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, err
	}

	sessions := credentials.NewStore(cfg.KeyringService)
	api, err := client.NewFinanceClient(cfg.ServerEndpointAddr,
		client.WithTokenListener(func(_, refresh string) {
			if err := sessions.SetRefreshToken(refresh); err != nil {
				log.Warn(ctx, "cannot persist refresh token", "error", err)
			}
		}))
	if err != nil {
		return nil, err
	}

	return NewApp(ctx, Deps{
		Config:   cfg,
		Logger:   log,
		Metrics:  metrics.NewCollector("finkeeper_client"),
		API:      api,
		Sessions: sessions,
		Store:    store.New(cfg.DBPath, store.WithLogger(log)),
		In:       in,
		Out:      out,
	}), nil
}

func (a *App) Close(ctx context.Context) error {
	err := a.auth.Close(ctx)
	if a.store != nil {
		err = errors.Join(err, a.store.Close())
	}
	return err
}

func (a *App) Mode() Mode {
	if a.net.IsOnline() {
		return ModeOnline
	}
	return ModeOffline
}

func (a *App) CacheEnabled() bool { return a.sync != nil }

func (a *App) isLoggedIn() bool { return a.userName != "" }

// requireOnline probes the server when the cached state says offline.
func (a *App) requireOnline(ctx context.Context) error {
	if a.net.IsOnline() || a.net.Probe(ctx) {
		return nil
	}
	return client.ErrUnavailable
}

func (a *App) requireCache() error {
	if !a.CacheEnabled() {
		return ErrCacheDisabled
	}
	return nil
}
