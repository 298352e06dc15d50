package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/patient-records/internal/config"
	"github.com/jwalitptl/patient-records/internal/repository/rest"
	"github.com/jwalitptl/patient-records/internal/service/navigation"
	"github.com/jwalitptl/patient-records/internal/service/notification"
	"github.com/jwalitptl/patient-records/pkg/logger"
	"github.com/jwalitptl/patient-records/pkg/messaging"
	"github.com/jwalitptl/patient-records/pkg/messaging/redis"
	"github.com/jwalitptl/patient-records/pkg/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app holds what every subcommand needs. It is built before the subcommand
// runs and torn down after it.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	repo     *rest.Client
	board    *notification.Board
	notifier notification.Notifier
	history  *navigation.History
	registry *prometheus.Registry
	broker   messaging.Broker

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	closers []func() error
}

type rootOptions struct {
	configPath string
	baseURL    string
	verbose    bool
	metrics    bool
}

// dialBroker connects the notice channel broker.
var dialBroker = func(ctx context.Context, url string, log zerolog.Logger) (messaging.Broker, error) {
	broker, err := redis.NewRedisBroker(ctx, redis.Config{
		URL:         url,
		MaxRetries:  1,
		DialTimeout: 2 * time.Second,
	}, log)
	if err != nil {
		return nil, err
	}
	return broker, nil
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	opts := &rootOptions{}
	a := &app{in: in, out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "patients",
		Short:         "Manage patient records on a remote patient store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.Context(), opts)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.metrics {
				if err := a.dumpMetrics(); err != nil {
					return err
				}
			}
			return a.close()
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default ./config.yaml)")
	root.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "patient store base url, overrides store.base_url")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().BoolVar(&opts.metrics, "metrics", false, "print store client metrics to stderr when done")

	root.AddCommand(
		listCmd(a),
		getCmd(a),
		addCmd(a),
		updateCmd(a),
		deleteCmd(a),
		exportCmd(a),
		checkUIDCmd(a),
		noticesCmd(a),
	)
	return root
}

func (a *app) init(ctx context.Context, opts *rootOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.baseURL != "" {
		cfg.Store.BaseURL = opts.baseURL
	}
	a.cfg = cfg

	level := logger.ParseLevel(cfg.Log.Level)
	if opts.verbose {
		level = logger.DebugLevel
	}
	a.log = logger.New(&logger.Config{Level: level, Output: a.errOut, JSON: cfg.Log.JSON})

	a.registry = prometheus.NewRegistry()
	a.repo, err = rest.NewClient(rest.Config{
		BaseURL:           cfg.Store.BaseURL,
		Timeout:           cfg.Store.RequestTimeout,
		RequestsPerSecond: cfg.Store.RateLimit.RequestsPerSecond,
		Burst:             cfg.Store.RateLimit.Burst,
		BreakerFailures:   cfg.Store.Breaker.MaxFailures,
		BreakerTimeout:    cfg.Store.Breaker.OpenTimeout,
	},
		rest.WithLogger(logger.Component(a.log, "store")),
		rest.WithMetrics(metrics.New("patients", a.registry)),
	)
	if err != nil {
		return err
	}

	a.board = notification.NewBoard(cfg.Notifications.TTL)
	a.history = navigation.NewHistory()
	sinks := notification.Multi{a.board, notification.NewLogSink(logger.Component(a.log, "notice"))}
	if publisher := a.publisher(ctx); publisher != nil {
		sinks = append(sinks, notification.NewPublisherSink(publisher, a.log))
	}
	a.notifier = sinks
	return nil
}

// connectBroker dials the notice channel broker once per run.
func (a *app) connectBroker(ctx context.Context) (messaging.Broker, error) {
	if a.broker != nil {
		return a.broker, nil
	}
	if a.cfg.Notifications.RedisURL == "" {
		return nil, errors.New("notifications.redis_url is not set")
	}

	dialCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	broker, err := dialBroker(dialCtx, a.cfg.Notifications.RedisURL, logger.Component(a.log, "redis"))
	if err != nil {
		return nil, err
	}
	a.broker = broker
	a.closers = append(a.closers, broker.Close)
	return broker, nil
}

// publisher connects the optional Redis notice channel. Failing to connect
// only loses the remote copy of the notices.
func (a *app) publisher(ctx context.Context) messaging.Publisher {
	if a.cfg.Notifications.RedisURL == "" {
		return nil
	}

	broker, err := a.connectBroker(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("notice channel disabled")
		return nil
	}
	publisher, err := messaging.NewChannelPublisher(broker, a.cfg.Notifications.Channel)
	if err != nil {
		a.log.Warn().Err(err).Msg("notice channel disabled")
		return nil
	}
	return publisher
}

func (a *app) close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
