package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/randalmurphal/eventflow/pkg/eventflow/codec"
	"github.com/randalmurphal/eventflow/pkg/eventflow/deadletter"
	eferrors "github.com/randalmurphal/eventflow/pkg/eventflow/errors"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/handler"
	"github.com/randalmurphal/eventflow/pkg/eventflow/transport/httpx"
)

// Configuration keys read by the deadletter commands. Flags take
// precedence.
const (
	keyDB           = "deadletter.db"
	keyRedriveURL   = "deadletter.redrive.url"
	keyRedriveEvery = "deadletter.redrive.every"
	keyRetries      = "deadletter.redrive.retries"
)

// DeadLetterCmd groups the dead-letter commands.
type DeadLetterCmd struct {
	DB string `name:"db" help:"SQLite dead-letter database (config: deadletter.db)" type:"path"`

	List    ListCmd    `cmd:"" help:"Print stored dead letters as JSON lines"`
	Count   CountCmd   `cmd:"" help:"Print the number of stored dead letters"`
	Ack     AckCmd     `cmd:"" help:"Remove dead letters by event id"`
	Redrive RedriveCmd `cmd:"" help:"Replay dead letters to an HTTP endpoint"`
}

func (d *DeadLetterCmd) open(g *Global) (*deadletter.SQLiteStore, error) {
	path := d.DB
	if path == "" {
		path = g.Config.String(keyDB, "")
	}
	if path == "" {
		return nil, errors.New("no dead-letter database: pass --db or set " + keyDB)
	}
	return deadletter.NewSQLiteStore(path)
}

// ListCmd prints dead letters.
type ListCmd struct {
	Limit int `help:"Maximum number of entries, 0 for all" default:"50"`
}

type listEntry struct {
	EventID       string       `json:"event_id"`
	Stage         string       `json:"stage,omitempty"`
	Error         string       `json:"error"`
	Attempts      int          `json:"attempts"`
	FirstFailedAt time.Time    `json:"first_failed_at"`
	LastFailedAt  time.Time    `json:"last_failed_at"`
	Event         *event.Event `json:"event"`
}

func (c *ListCmd) Run(g *Global, d *DeadLetterCmd) error {
	store, err := d.open(g)
	if err != nil {
		return err
	}
	defer store.Close()

	failed, err := store.List(context.Background(), c.Limit)
	if err != nil {
		return err
	}
	for _, f := range failed {
		e, err := f.Event()
		if err != nil {
			return fmt.Errorf("decode dead letter %s: %w", f.EventID, err)
		}
		entry := listEntry{
			EventID:       f.EventID,
			Stage:         f.Stage,
			Error:         f.Error,
			Attempts:      f.Attempts,
			FirstFailedAt: f.FirstFailedAt,
			LastFailedAt:  f.LastFailedAt,
			Event:         e,
		}
		if err := codec.Encode(g.Out, entry); err != nil {
			return err
		}
	}
	return nil
}

// CountCmd prints the number of dead letters.
type CountCmd struct{}

func (CountCmd) Run(g *Global, d *DeadLetterCmd) error {
	store, err := d.open(g)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Count(context.Background())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(g.Out, n)
	return err
}

// AckCmd removes dead letters.
type AckCmd struct {
	IDs []string `arg:"" name:"id" help:"Event ids to remove"`
}

func (c *AckCmd) Run(g *Global, d *DeadLetterCmd) error {
	store, err := d.open(g)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Acknowledge(context.Background(), c.IDs...); err != nil {
		return err
	}
	g.Logger.Info("dead letters acknowledged", slog.Int("count", len(c.IDs)))
	return nil
}

// RedriveCmd replays dead letters over HTTP.
type RedriveCmd struct {
	URL     string            `help:"Endpoint receiving replayed events (config: deadletter.redrive.url)"`
	Header  map[string]string `short:"H" help:"Extra request header, key=value"`
	Limit   int               `help:"Maximum events per run, 0 for all" default:"0"`
	Retries int               `help:"Attempts per event before it is stored again (config: deadletter.redrive.retries)" default:"-1"`
	Every   time.Duration     `help:"Repeat on this interval until interrupted (config: deadletter.redrive.every)"`
}

func (c *RedriveCmd) target(g *Global) (any, error) {
	url := c.URL
	if url == "" {
		url = g.Config.String(keyRedriveURL, "")
	}
	if url == "" {
		return nil, errors.New("no redrive endpoint: pass --url or set " + keyRedriveURL)
	}

	cfg := httpx.Config{URL: url}
	if len(c.Header) > 0 {
		cfg.Headers = httpx.StaticHeaders(c.Header)
	}
	ch, err := httpx.NewChannel(cfg, httpx.WithName("redrive"), httpx.WithLogger(g.Logger))
	if err != nil {
		return nil, err
	}

	retries := c.Retries
	if retries < 0 {
		retries = g.Config.Int(keyRetries, 1)
	}
	if retries <= 1 {
		return ch, nil
	}
	policy := eferrors.DefaultRetry
	policy.MaxAttempts = retries
	return handler.NewRetrying(ch, policy, handler.WithName("redrive-retry"), handler.WithLogger(g.Logger))
}

func (c *RedriveCmd) Run(g *Global, d *DeadLetterCmd) error {
	store, err := d.open(g)
	if err != nil {
		return err
	}
	defer store.Close()

	target, err := c.target(g)
	if err != nil {
		return err
	}

	once := func(ctx context.Context) error {
		res, err := deadletter.Redrive(ctx, store, target, c.Limit)
		g.Logger.Info("redrive finished",
			slog.Int("replayed", res.Replayed),
			slog.Int("failed", res.Failed),
		)
		if _, werr := fmt.Fprintf(g.Out, "replayed=%d failed=%d\n", res.Replayed, res.Failed); werr != nil && err == nil {
			err = werr
		}
		return err
	}

	every := c.Every
	if every == 0 {
		every = g.Config.Duration(keyRedriveEvery, 0)
	}
	if every <= 0 {
		return once(context.Background())
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return schedule(ctx, g.Logger, every, once)
}

// schedule runs job every interval, starting immediately, until ctx is
// done. Runs never overlap.
func schedule(ctx context.Context, logger *slog.Logger, interval time.Duration, job func(context.Context) error) error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := job(ctx); err != nil && ctx.Err() == nil {
				logger.Error("scheduled redrive failed", slog.String("error", err.Error()))
			}
		}),
		gocron.WithName("deadletter-redrive"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("schedule redrive: %w", err)
	}

	logger.Info("redrive scheduled", slog.Duration("every", interval))
	s.Start()
	<-ctx.Done()
	return s.Shutdown()
}
