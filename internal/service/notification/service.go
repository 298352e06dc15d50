package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/patient-records/internal/model"
	"github.com/jwalitptl/patient-records/pkg/messaging"
)

const (
	defaultTTL     = 5 * time.Second
	publishTimeout = 2 * time.Second

	eventNotice = "notice"
)

// Notifier shows a transient message to the user. Implementations must not
// block the caller for long and never fail.
type Notifier interface {
	Notify(severity model.Severity, message string)
}

func Success(n Notifier, message string) { n.Notify(model.SeveritySuccess, message) }
func Warning(n Notifier, message string) { n.Notify(model.SeverityWarning, message) }
func Error(n Notifier, message string)   { n.Notify(model.SeverityError, message) }

// Board keeps the currently visible notices. Each notice expires after the
// board's ttl.
type Board struct {
	cache *cache.Cache
}

func NewBoard(ttl time.Duration) *Board {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Board{cache: cache.New(ttl, 2*ttl)}
}

func (b *Board) Notify(severity model.Severity, message string) {
	n := model.NewNotice(severity, message)
	b.cache.SetDefault(n.ID.String(), n)
}

// Active returns the unexpired notices, oldest first.
func (b *Board) Active() []*model.Notice {
	items := b.cache.Items()
	notices := make([]*model.Notice, 0, len(items))
	for _, item := range items {
		if n, ok := item.Object.(*model.Notice); ok {
			notices = append(notices, n)
		}
	}
	sort.Slice(notices, func(i, j int) bool {
		return notices[i].CreatedAt.Before(notices[j].CreatedAt)
	})
	return notices
}

func (b *Board) Dismiss(id uuid.UUID) {
	b.cache.Delete(id.String())
}

func (b *Board) Clear() {
	b.cache.Flush()
}

type logSink struct {
	log zerolog.Logger
}

// NewLogSink writes every notice to log at a level matching its severity.
func NewLogSink(log zerolog.Logger) Notifier {
	return &logSink{log: log}
}

func (s *logSink) Notify(severity model.Severity, message string) {
	var ev *zerolog.Event
	switch severity {
	case model.SeverityError:
		ev = s.log.Error()
	case model.SeverityWarning:
		ev = s.log.Warn()
	default:
		ev = s.log.Info()
	}
	ev.Str("severity", string(severity)).Msg(message)
}

type publisherSink struct {
	publisher messaging.Publisher
	timeout   time.Duration
	log       zerolog.Logger
}

// NewPublisherSink forwards notices to a message broker, e.g. Redis pub/sub.
// Publish failures are logged and dropped.
func NewPublisherSink(publisher messaging.Publisher, log zerolog.Logger) Notifier {
	return &publisherSink{publisher: publisher, timeout: publishTimeout, log: log}
}

func (s *publisherSink) Notify(severity model.Severity, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n := model.NewNotice(severity, message)
	if err := s.publisher.Publish(ctx, eventNotice, n); err != nil {
		s.log.Warn().Err(err).Str("notice_id", n.ID.String()).Msg("failed to publish notice")
	}
}

// Multi fans a notice out to every non-nil notifier in order.
type Multi []Notifier

func (m Multi) Notify(severity model.Severity, message string) {
	for _, n := range m {
		if n != nil {
			n.Notify(severity, message)
		}
	}
}

// Subscription yields the envelopes published on a notice channel
type Subscription interface {
	Subscribe(ctx context.Context) (<-chan messaging.Envelope, error)
}

// Follow hands every notice published by a publisher sink to fn until fn
// returns false, ctx is done or the subscription ends. Other event types are
// ignored.
func Follow(ctx context.Context, sub Subscription, fn func(*model.Notice) bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	envs, err := sub.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to follow notices: %w", err)
	}
	for env := range envs {
		if env.Type != eventNotice {
			continue
		}
		var n model.Notice
		if err := json.Unmarshal(env.Payload, &n); err != nil {
			continue
		}
		if !fn(&n) {
			return nil
		}
	}
	return ctx.Err()
}
