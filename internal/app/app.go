// Package app wires the timer stack from a resolved Config: storage, the
// backend client, the query cache, the event bus and the gateway.
package app

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/alexanderramin/tasktimer/internal/api"
	"github.com/alexanderramin/tasktimer/internal/config"
	"github.com/alexanderramin/tasktimer/internal/db"
	"github.com/alexanderramin/tasktimer/internal/event"
	"github.com/alexanderramin/tasktimer/internal/i18n"
	"github.com/alexanderramin/tasktimer/internal/query"
	"github.com/alexanderramin/tasktimer/internal/repository"
	"github.com/alexanderramin/tasktimer/internal/timer"
)

// Services is the assembled application graph shared by CLI commands.
type Services struct {
	Config  config.Config
	DB      *sql.DB
	Client  api.Client
	Cache   *query.Cache
	Bus     *event.Bus
	Gateway *timer.Gateway
	Msgs    *i18n.Messages
	Logger  *slog.Logger
	Now     func() time.Time
}

// Option adjusts wiring, mainly for tests.
type Option func(*wiring)

type wiring struct {
	logOut io.Writer
	tokens api.TokenSource
	now    func() time.Time
}

// WithLogOutput sets where diagnostic logs go when cfg.API.LogCalls is on.
func WithLogOutput(w io.Writer) Option {
	return func(o *wiring) { o.logOut = w }
}

// WithTokenSource replaces the static token from cfg.API.Token.
func WithTokenSource(ts api.TokenSource) Option {
	return func(o *wiring) { o.tokens = ts }
}

// WithClock sets the time source for the cache and gateway.
func WithClock(now func() time.Time) Option {
	return func(o *wiring) { o.now = now }
}

// Wire opens the snapshot database and builds every service on top of it.
// Call Close when done.
func Wire(cfg config.Config, opts ...Option) (*Services, error) {
	o := wiring{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	database, err := db.OpenDB(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	logger := slog.New(slog.DiscardHandler)
	var callObserver api.Observer = api.NoopObserver{}
	var useCaseObserver timer.UseCaseObserver = timer.NoopUseCaseObserver{}
	if cfg.API.LogCalls && o.logOut != nil {
		logger = slog.New(slog.NewTextHandler(o.logOut, nil))
		callObserver = api.NewLogObserver(o.logOut)
		useCaseObserver = timer.NewLogUseCaseObserver(o.logOut)
	}

	client := api.NewHTTPClient(cfg.API, o.tokens, callObserver)
	msgs := i18n.New(cfg.Locale)

	cache := query.NewCache(client,
		repository.NewSQLiteTaskRepo(database),
		repository.NewSQLiteQueryStateRepo(database),
		db.NewSQLiteUnitOfWork(database),
		query.WithMaxAge(cfg.CacheMaxAgeDuration()),
		query.WithClock(o.now),
		query.WithLogger(logger),
	)
	bus := event.NewBus(logger)

	gateway := timer.NewGateway(client, timer.NewMemoryStore(),
		timer.WithClock(o.now),
		timer.WithInvalidator(cache),
		timer.WithNotifier(bus),
		timer.WithLogger(logger),
		timer.WithUseCaseObserver(useCaseObserver),
		timer.WithMessages(msgs),
	)

	return &Services{
		Config:  cfg,
		DB:      database,
		Client:  client,
		Cache:   cache,
		Bus:     bus,
		Gateway: gateway,
		Msgs:    msgs,
		Logger:  logger,
		Now:     o.now,
	}, nil
}

// Close releases the database.
func (s *Services) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}
