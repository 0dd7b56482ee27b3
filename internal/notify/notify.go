package notify

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kyonru/feather-companion/internal/config"
	"github.com/kyonru/feather-companion/internal/version"
)

const (
	maxHistoryLen  = 100
	subscriberBuf  = 16
	webhookTimeout = 10 * time.Second
)

// Kind classifies an Event.
type Kind string

const (
	KindConnected       Kind = "connected"
	KindDisconnected    Kind = "disconnected"
	KindVersionMismatch Kind = "version_mismatch"
)

// Event is one notification.
type Event struct {
	ID            string    `json:"id"`
	Kind          Kind      `json:"kind"`
	Severity      string    `json:"severity"` // info | warning
	Message       string    `json:"message"`
	ServerURL     string    `json:"server_url,omitempty"`
	ServerVersion string    `json:"server_version,omitempty"`
	ClientVersion string    `json:"client_version,omitempty"`
	At            time.Time `json:"at"`
}

// Notifier records and distributes Events.
//
// Notifier is safe for concurrent use.
type Notifier struct {
	webhooks      []config.WebhookConfig
	cooldown      time.Duration
	clientVersion string
	client        *http.Client

	mu           sync.Mutex
	history      []Event
	lastDelivery map[Kind]time.Time
	subs         map[chan Event]struct{}
	mismatchFor  string // server version a mismatch was last reported for

	now func() time.Time
}

// New creates a Notifier. clientVersion is compared against the version each
// server reports on connect.
func New(cfg config.NotifyConfig, clientVersion string) *Notifier {
	return &Notifier{
		webhooks:      cfg.Webhooks,
		cooldown:      cfg.Cooldown,
		clientVersion: clientVersion,
		client:        &http.Client{Timeout: webhookTimeout},
		lastDelivery:  make(map[Kind]time.Time),
		subs:          make(map[chan Event]struct{}),
		now:           time.Now,
	}
}

// Connected records that serverURL answered and reports a version mismatch
// once per distinct server version.
func (n *Notifier) Connected(serverURL, serverVersion string) {
	n.emit(Event{
		Kind:          KindConnected,
		Severity:      "info",
		Message:       fmt.Sprintf("Connected to Feather at %s", serverURL),
		ServerURL:     serverURL,
		ServerVersion: serverVersion,
		ClientVersion: n.clientVersion,
	})

	n.mu.Lock()
	report := version.Mismatch(n.clientVersion, serverVersion) && n.mismatchFor != serverVersion
	if report {
		n.mismatchFor = serverVersion
	}
	n.mu.Unlock()

	if report {
		n.emit(Event{
			Kind:     KindVersionMismatch,
			Severity: "warning",
			Message: fmt.Sprintf("Server version %s does not match companion version %s",
				serverVersion, n.clientVersion),
			ServerURL:     serverURL,
			ServerVersion: serverVersion,
			ClientVersion: n.clientVersion,
		})
	}
}

// Disconnected records that serverURL stopped answering.
func (n *Notifier) Disconnected(serverURL string, cause error) {
	msg := fmt.Sprintf("Lost connection to Feather at %s", serverURL)
	if cause != nil {
		msg += ": " + cause.Error()
	}
	n.emit(Event{
		Kind:          KindDisconnected,
		Severity:      "warning",
		Message:       msg,
		ServerURL:     serverURL,
		ClientVersion: n.clientVersion,
	})
}

func (n *Notifier) emit(ev Event) {
	ev.ID = uuid.NewString()

	n.mu.Lock()
	ev.At = n.now()
	n.history = append(n.history, ev)
	if len(n.history) > maxHistoryLen {
		n.history = n.history[len(n.history)-maxHistoryLen:]
	}

	for ch := range n.subs {
		select {
		case ch <- ev:
		default:
			slog.Warn("notify: subscriber buffer full, dropping event", "kind", ev.Kind)
		}
	}

	deliver := len(n.webhooks) > 0 && ev.At.Sub(n.lastDelivery[ev.Kind]) >= n.cooldown
	if deliver {
		n.lastDelivery[ev.Kind] = ev.At
	}
	n.mu.Unlock()

	if ev.Severity == "warning" {
		slog.Warn("notify: "+string(ev.Kind), "message", ev.Message)
	} else {
		slog.Info("notify: "+string(ev.Kind), "message", ev.Message)
	}

	if deliver {
		go n.deliver(ev)
	}
}

// Recent returns the recorded events, newest last.
func (n *Notifier) Recent() []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Event, len(n.history))
	copy(out, n.history)
	return out
}

// Subscribe returns a channel receiving every future Event and a function
// that unsubscribes and closes the channel. Slow subscribers miss events.
func (n *Notifier) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuf)
	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, ch)
			n.mu.Unlock()
			close(ch)
		})
	}
}
