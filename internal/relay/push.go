package relay

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"golang.org/x/time/rate"

	"github.com/asheshgoplani/tama-deck/internal/logging"
	"github.com/asheshgoplani/tama-deck/internal/presentation"
	"github.com/asheshgoplani/tama-deck/internal/session"
	"github.com/asheshgoplani/tama-deck/internal/snapshot"
)

const defaultPushInterval = 60 * time.Second

// Sender delivers one encrypted payload to one subscription and returns the
// gateway status code.
type Sender interface {
	Send(payload []byte, sub Subscription) (int, error)
}

// NewVAPIDSender signs deliveries with keys.
func NewVAPIDSender(keys VAPIDKeys) Sender {
	return &vapidSender{keys: keys}
}

type vapidSender struct {
	keys VAPIDKeys
}

func (s *vapidSender) Send(payload []byte, sub Subscription) (int, error) {
	sub = sub.normalize()
	resp, err := webpush.SendNotification(payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256DH,
			Auth:   sub.Keys.Auth,
		},
	}, &webpush.Options{
		Subscriber:      s.keys.Subject,
		VAPIDPublicKey:  s.keys.PublicKey,
		VAPIDPrivateKey: s.keys.PrivateKey,
		TTL:             300,
	})
	status := 0
	if resp != nil {
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		status = resp.StatusCode
	}
	if err != nil {
		return status, err
	}
	if status >= 400 {
		return status, fmt.Errorf("push gateway status %d", status)
	}
	return status, nil
}

// PushMessage is the notification body the service worker renders.
type PushMessage struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	Tag       string `json:"tag"`
	Tier      string `json:"tier"`
	Color     string `json:"color"`
	Timestamp string `json:"timestamp"`
}

// PushOptions configures a PushRelay.
type PushOptions struct {
	Store    *SubscriptionStore
	Sender   Sender
	MinTier  presentation.Tier
	Interval time.Duration
	Now      func() time.Time
}

// PushRelay sends a web push when suspicion crosses into MinTier or above.
// Pushes are edge triggered and spaced by at least Interval. Calm is the
// floor every snapshot starts from, so MinTier is at least curious.
type PushRelay struct {
	store   *SubscriptionStore
	sender  Sender
	minTier presentation.Tier
	limiter *rate.Limiter
	now     func() time.Time

	mu       sync.Mutex
	lastTier presentation.Tier

	wg sync.WaitGroup
}

// NewPushRelay builds a relay from opts.
func NewPushRelay(opts PushOptions) *PushRelay {
	if opts.Interval <= 0 {
		opts.Interval = defaultPushInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MinTier <= presentation.TierCalm {
		relayLog.Warn("push_min_tier_raised",
			slog.String("requested", opts.MinTier.String()),
			slog.String("effective", presentation.TierCurious.String()))
		opts.MinTier = presentation.TierCurious
	}
	return &PushRelay{
		store:   opts.Store,
		sender:  opts.Sender,
		minTier: opts.MinTier,
		limiter: rate.NewLimiter(rate.Every(opts.Interval), 1),
		now:     opts.Now,
	}
}

// Forward implements Relay. Delivery happens on a separate goroutine.
func (p *PushRelay) Forward(s snapshot.Snapshot, _ session.Phase) {
	tier := presentation.TierFor(s.SuspicionIndex)

	p.mu.Lock()
	prev := p.lastTier
	p.lastTier = tier
	p.mu.Unlock()

	if tier < p.minTier || prev >= p.minTier {
		return
	}
	now := p.now()
	if !p.limiter.AllowN(now, 1) {
		logging.Aggregate(logging.CompRelay, "push_throttled", slog.String("tier", tier.String()))
		return
	}

	payload, err := json.Marshal(PushMessage{
		Title:     fmt.Sprintf("Tama is %s", tier),
		Body:      fmt.Sprintf("Suspicion %d/10 on %s", s.SuspicionIndex, s.ActiveWindow),
		Tag:       "tama-alert",
		Tier:      tier.String(),
		Color:     tier.Color(),
		Timestamp: now.UTC().Format(time.RFC3339),
	})
	if err != nil {
		relayLog.Debug("push_marshal_failed", slog.String("error", err.Error()))
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.deliver(payload)
	}()
}

// Wait blocks until in-flight deliveries finish.
func (p *PushRelay) Wait() { p.wg.Wait() }

func (p *PushRelay) deliver(payload []byte) {
	if p.store == nil || p.sender == nil {
		return
	}
	subs, err := p.store.List()
	if err != nil {
		relayLog.Warn("push_subscriptions_unreadable", slog.String("error", err.Error()))
		return
	}
	for _, sub := range subs {
		status, err := p.sender.Send(payload, sub)
		if err == nil {
			continue
		}
		if status == http.StatusNotFound || status == http.StatusGone {
			relayLog.Info("push_subscription_expired", slog.String("endpoint", sub.Endpoint))
			_ = p.store.Remove(sub.Endpoint)
			continue
		}
		relayLog.Warn("push_send_failed",
			slog.String("endpoint", sub.Endpoint),
			slog.Int("status", status),
			slog.String("error", err.Error()))
	}
}
