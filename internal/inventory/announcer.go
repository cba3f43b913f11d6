package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/pas-client-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/pas-client-core/internal/topology"
)

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Publisher is the subset of the MQTT client the Announcer uses.
// *mqtt.Client implements it.
type Publisher interface {
	PublishRetained(topic string, payload []byte) error
	SubscribeDefault(topic string, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Reloader reloads the device topology. *clientconfig.Configuration
// implements it.
type Reloader interface {
	Reload(ctx context.Context) error
	LoadDeviceConfiguration(ctx context.Context, positions []string) error
}

// Summary is the retained description of the last load.
type Summary struct {
	Telescope string         `json:"telescope"`
	LoadID    string         `json:"load_id"`
	Counts    map[string]int `json:"counts"`
	Skipped   []string       `json:"skipped"`
	Timestamp time.Time      `json:"timestamp"`
}

// reloadRequest is the optional payload of a reload command. Without
// positions the last requested positions are reloaded.
type reloadRequest struct {
	Positions []string `json:"positions"`
}

// Announcer publishes the loaded topology on retained MQTT topics, one per
// device plus a summary, and serves reload commands.
type Announcer struct {
	pub       Publisher
	topics    mqtt.Topics
	telescope string
	logger    Logger

	mu        sync.Mutex
	published map[string]struct{}
}

// NewAnnouncer creates an announcer publishing under topics.
func NewAnnouncer(pub Publisher, topics mqtt.Topics, telescope string) *Announcer {
	return &Announcer{
		pub:       pub,
		topics:    topics,
		telescope: telescope,
		logger:    noopLogger{},
		published: make(map[string]struct{}),
	}
}

// SetLogger sets the logger for the announcer.
func (a *Announcer) SetLogger(logger Logger) {
	a.logger = logger
}

// Announce publishes a snapshot. Device topics left over from an earlier
// announcement are cleared with an empty retained message.
func (a *Announcer) Announce(snap *Snapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	current := make(map[string]struct{}, len(snap.Devices))
	for _, d := range snap.Devices {
		topic := a.topics.TopologyDevice(d.TypeName, deviceKey(d))
		payload, err := json.Marshal(d)
		if err != nil {
			errs = append(errs, fmt.Errorf("encoding %s: %w", topic, err))
			continue
		}
		if err := a.pub.PublishRetained(topic, payload); err != nil {
			errs = append(errs, fmt.Errorf("publishing %s: %w", topic, err))
			continue
		}
		current[topic] = struct{}{}
	}

	for topic := range a.published {
		if _, ok := current[topic]; ok {
			continue
		}
		if err := a.pub.PublishRetained(topic, nil); err != nil {
			errs = append(errs, fmt.Errorf("clearing %s: %w", topic, err))
			current[topic] = struct{}{}
		}
	}
	a.published = current

	summary, err := json.Marshal(a.summary(snap))
	if err != nil {
		errs = append(errs, fmt.Errorf("encoding summary: %w", err))
	} else if err := a.pub.PublishRetained(a.topics.TopologySummary(), summary); err != nil {
		errs = append(errs, fmt.Errorf("publishing summary: %w", err))
	}

	a.logger.Info("topology announced",
		"load_id", snap.LoadID,
		"devices", len(snap.Devices),
		"failed", len(errs),
	)
	return errors.Join(errs...)
}

func (a *Announcer) summary(snap *Snapshot) Summary {
	counts := make(map[string]int, len(topology.AllDeviceTypes))
	for _, t := range topology.AllDeviceTypes {
		counts[t.String()] = snap.Count(t)
	}
	skipped := snap.Skipped
	if skipped == nil {
		skipped = []string{}
	}
	return Summary{
		Telescope: a.telescope,
		LoadID:    snap.LoadID,
		Counts:    counts,
		Skipped:   skipped,
		Timestamp: time.Now().UTC(),
	}
}

// ServeReload subscribes to the reload command topic until ctx is done.
// Each command reloads the topology through r; the resulting announcement
// is left to the reloader's load callbacks.
func (a *Announcer) ServeReload(ctx context.Context, r Reloader) error {
	topic := a.topics.TopologyReload()
	err := a.pub.SubscribeDefault(topic, func(_ string, payload []byte) error {
		return a.handleReload(ctx, r, payload)
	})
	if err != nil {
		return err
	}
	if ctx.Done() == nil {
		return nil
	}

	go func() {
		<-ctx.Done()
		if err := a.pub.Unsubscribe(topic); err != nil {
			a.logger.Debug("reload unsubscribe failed", "topic", topic, "error", err)
		}
	}()
	return nil
}

func (a *Announcer) handleReload(ctx context.Context, r Reloader, payload []byte) error {
	var req reloadRequest
	if len(strings.TrimSpace(string(payload))) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return fmt.Errorf("decoding reload command: %w", err)
		}
	}

	a.logger.Info("topology reload requested", "positions", req.Positions)
	if len(req.Positions) > 0 {
		return r.LoadDeviceConfiguration(ctx, req.Positions)
	}
	return r.Reload(ctx)
}

// deviceKey is the last topic level for a device. Edge names contain "+",
// which is not allowed in a topic, so their panels are joined with "-".
func deviceKey(d Device) string {
	switch d.Type {
	case topology.DeviceTypeEdge:
		return strings.ReplaceAll(d.Identity.Address, "+", "-")
	case topology.DeviceTypeMirror:
		return d.Identity.Address
	default:
		return strconv.Itoa(d.Identity.SerialNumber)
	}
}
