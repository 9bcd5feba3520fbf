// Package plugin is the notification dispatcher. Activate builds the single
// context value holding the target set, the bus connection and the
// forwarding engine; the host then calls one method per notification.
// Transactions are filtered and forwarded, every other kind is only logged.
//
// A Plugin is either fully activated or absent. All methods are safe for
// concurrent use by the host's notification threads.
package plugin

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maxpert/geyserbridge/cfg"
	"github.com/maxpert/geyserbridge/forwarder"
	"github.com/maxpert/geyserbridge/geyser"
	"github.com/maxpert/geyserbridge/notify"
	"github.com/maxpert/geyserbridge/publisher"
	"github.com/maxpert/geyserbridge/slots"
	"github.com/maxpert/geyserbridge/targets"
	"github.com/maxpert/geyserbridge/telemetry"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog/log"
)

// Name is reported to the host
const Name = "geyserbridge"

// Config is everything Activate needs
type Config struct {
	BusURL           string
	TargetProgramIDs []string
	Channel          string
	Format           string
	PublishTimeout   time.Duration
	DialTimeout      time.Duration
	Notifications    cfg.NotificationsConfiguration
	LogAccountOwners []string
	LogAccounts      []string
	RecentSlots      int
	// Hub receives every match when set
	Hub *notify.Hub
}

// ConfigFromGlobal builds a Config from cfg.Config
func ConfigFromGlobal() Config {
	c := cfg.Config
	return Config{
		BusURL:           c.BusURL,
		TargetProgramIDs: c.TargetProgramIDs,
		Channel:          c.Publish.Channel,
		Format:           c.Publish.Format,
		PublishTimeout:   time.Duration(c.Publish.TimeoutMS) * time.Millisecond,
		Notifications:    c.Notifications,
		LogAccountOwners: c.Logging.LogAccountOwners,
		LogAccounts:      c.Logging.LogAccounts,
		RecentSlots:      c.Slots.RecentSize,
	}
}

// Plugin is the activated bridge
type Plugin struct {
	config    Config
	targets   *targets.Set
	publisher publisher.Publisher
	engine    *forwarder.Engine
	slots     *slots.Tracker
	accounts  *AccountFilter
	hub       *notify.Hub
	counters  *xsync.MapOf[geyser.Kind, *xsync.Counter]
	started   time.Time
	active    atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
}

// Activate builds a ready Plugin or returns a *ConfigError or
// *ConnectionError. Nothing is left open on failure.
func Activate(config Config) (*Plugin, error) {
	set, err := targets.Build(config.TargetProgramIDs)
	if err != nil {
		return nil, &ConfigError{Field: "target_program_ids", Err: err}
	}

	accounts, err := NewAccountFilter(config.LogAccountOwners, config.LogAccounts)
	if err != nil {
		return nil, &ConfigError{Field: "logging", Err: err}
	}

	format := config.Format
	if format == "" {
		format = "text"
	}
	transformer, err := publisher.NewTransformer(format)
	if err != nil {
		return nil, &ConfigError{Field: "publish.format", Err: err}
	}

	recent := config.RecentSlots
	if recent == 0 {
		recent = cfg.Default().Slots.RecentSize
	}
	tracker, err := slots.NewTracker(recent)
	if err != nil {
		return nil, &ConfigError{Field: "slots.recent_size", Err: err}
	}

	if config.BusURL == "" {
		return nil, &ConfigError{Field: "bus_url", Err: fmt.Errorf("bus url is required")}
	}

	// Connect last so every failure above leaves nothing to release
	pub, err := publisher.Open(config.BusURL, publisher.Options{DialTimeout: config.DialTimeout})
	if err != nil {
		return nil, err
	}

	engine, err := forwarder.New(forwarder.Config{
		Targets:        set,
		Publisher:      pub,
		Transformer:    transformer,
		Channel:        config.Channel,
		PublishTimeout: config.PublishTimeout,
		Hub:            config.Hub,
	})
	if err != nil {
		pub.Close()
		return nil, &ConfigError{Err: err}
	}

	p := &Plugin{
		config:    config,
		targets:   set,
		publisher: pub,
		engine:    engine,
		slots:     tracker,
		accounts:  accounts,
		hub:       config.Hub,
		counters:  xsync.NewMapOf[geyser.Kind, *xsync.Counter](),
		started:   time.Now(),
	}

	telemetry.TargetPrograms.Set(float64(set.Len()))
	log.Info().
		Int("target_programs", set.Len()).
		Str("channel", engine.Channel()).
		Str("format", format).
		Msg("Plugin loaded")

	return p, nil
}

func (p *Plugin) ready() error {
	if p == nil || p.engine == nil || p.closed.Load() {
		return ErrNotActivated
	}
	return nil
}

func (p *Plugin) count(kind geyser.Kind) {
	c, _ := p.counters.LoadOrCompute(kind, xsync.NewCounter)
	c.Inc()
	telemetry.NotificationsTotal.With(string(kind)).Inc()
}

func fault(kind geyser.Kind, version string) error {
	telemetry.ProtocolFaultsTotal.With(string(kind)).Inc()
	return geyser.Fault(kind, version)
}

// Name returns the plugin name
func (p *Plugin) Name() string {
	return Name
}

// NotifyTransaction normalizes either supported transaction version and
// hands it to the forwarding engine. Publish failures are absorbed; only a
// protocol fault or an inactive plugin return an error.
func (p *Plugin) NotifyTransaction(ctx context.Context, info geyser.TransactionInfo, slot uint64) error {
	if err := p.ready(); err != nil {
		return err
	}

	tx, err := geyser.NormalizeTransaction(info, slot)
	if err != nil {
		telemetry.ProtocolFaultsTotal.With(string(geyser.KindTransaction)).Inc()
		return err
	}

	p.count(geyser.KindTransaction)
	p.engine.Handle(ctx, tx)
	return nil
}

// UpdateAccount logs a v0.0.3 account update. Older versions are a protocol fault.
func (p *Plugin) UpdateAccount(info geyser.AccountInfo, slot uint64, isStartup bool) error {
	if err := p.ready(); err != nil {
		return err
	}

	var account *geyser.ReplicaAccountInfoV3
	switch a := info.(type) {
	case *geyser.ReplicaAccountInfoV3:
		if a == nil {
			return fault(geyser.KindAccount, "nil")
		}
		account = a
	case *geyser.ReplicaAccountInfo:
		return fault(geyser.KindAccount, "0.0.1")
	case *geyser.ReplicaAccountInfoV2:
		return fault(geyser.KindAccount, "0.0.2")
	default:
		return fault(geyser.KindAccount, "nil")
	}

	p.count(geyser.KindAccount)

	owner := account.Owner.String()
	pubkey := account.Pubkey.String()

	ev := log.Debug()
	if p.accounts.Match(owner, pubkey) {
		ev = log.Info()
	}
	ev = ev.
		Uint64("slot", slot).
		Bool("startup", isStartup).
		Uint64("lamports", account.Lamports).
		Str("pubkey", pubkey).
		Str("owner", owner).
		Int("data_len", len(account.Data))
	if account.TxnSignature != nil {
		ev = ev.Stringer("signature", account.TxnSignature)
	}
	ev.Msg("Account updated")

	return nil
}

// UpdateSlotStatus records and logs a slot status change
func (p *Plugin) UpdateSlotStatus(update geyser.SlotUpdate) error {
	if err := p.ready(); err != nil {
		return err
	}

	if !update.Status.Valid() {
		return fault(geyser.KindSlot, update.Status.String())
	}

	p.count(geyser.KindSlot)
	p.slots.Observe(update)

	ev := log.Debug().
		Uint64("slot", update.Slot).
		Str("status", update.Status.String())
	if update.Parent != nil {
		ev = ev.Uint64("parent", *update.Parent)
	}
	if update.Status == geyser.SlotDead {
		ev = ev.Str("error", update.DeadError)
	}
	ev.Msg("Slot status updated")

	return nil
}

// NotifyBlockMetadata logs block metadata of any known version
func (p *Plugin) NotifyBlockMetadata(info geyser.BlockInfo) error {
	if err := p.ready(); err != nil {
		return err
	}

	ev := log.Info()
	switch b := info.(type) {
	case *geyser.ReplicaBlockInfo:
		if b == nil {
			return fault(geyser.KindBlock, "nil")
		}
		ev = blockFields(ev, b).Str("version", "0.0.1")
	case *geyser.ReplicaBlockInfoV2:
		if b == nil {
			return fault(geyser.KindBlock, "nil")
		}
		ev = blockV2Fields(ev, b).Str("version", "0.0.2")
	case *geyser.ReplicaBlockInfoV3:
		if b == nil {
			return fault(geyser.KindBlock, "nil")
		}
		ev = blockV2Fields(ev, &b.ReplicaBlockInfoV2).
			Uint64("entry_count", b.EntryCount).
			Str("version", "0.0.3")
	case *geyser.ReplicaBlockInfoV4:
		if b == nil {
			return fault(geyser.KindBlock, "nil")
		}
		ev = blockV2Fields(ev, &b.ReplicaBlockInfoV2).
			Uint64("entry_count", b.EntryCount).
			Str("version", "0.0.4")
	default:
		return fault(geyser.KindBlock, "nil")
	}

	p.count(geyser.KindBlock)
	ev.Msg("Block metadata")
	return nil
}

// NotifyEntry counts entries; they carry nothing the bridge forwards
func (p *Plugin) NotifyEntry(info geyser.EntryInfo) error {
	if err := p.ready(); err != nil {
		return err
	}

	var entry *geyser.ReplicaEntryInfo
	var startIndex *uint64
	switch e := info.(type) {
	case *geyser.ReplicaEntryInfo:
		if e == nil {
			return fault(geyser.KindEntry, "nil")
		}
		entry = e
	case *geyser.ReplicaEntryInfoV2:
		if e == nil {
			return fault(geyser.KindEntry, "nil")
		}
		entry = &e.ReplicaEntryInfo
		startIndex = &e.StartingTransactionIndex
	default:
		return fault(geyser.KindEntry, "nil")
	}

	p.count(geyser.KindEntry)

	ev := log.Debug().
		Uint64("slot", entry.Slot).
		Uint64("index", entry.Index).
		Uint64("num_hashes", entry.NumHashes).
		Uint64("executed_txn_count", entry.ExecutedTxnCount)
	if startIndex != nil {
		ev = ev.Uint64("starting_txn_index", *startIndex)
	}
	ev.Msg("Entry")
	return nil
}

// NotifyEndOfStartup marks the end of the host's startup snapshot replay
func (p *Plugin) NotifyEndOfStartup() error {
	if err := p.ready(); err != nil {
		return err
	}

	p.count(geyser.KindEndOfStartup)
	p.active.Store(true)
	log.Info().Msg("End of startup notification received. Plugin is now active.")
	return nil
}

// AccountDataNotificationsEnabled tells the host whether to send account updates
func (p *Plugin) AccountDataNotificationsEnabled() bool {
	return p.ready() == nil && p.config.Notifications.AccountData
}

// TransactionNotificationsEnabled tells the host whether to send transactions
func (p *Plugin) TransactionNotificationsEnabled() bool {
	return p.ready() == nil && p.config.Notifications.Transactions
}

// EntryNotificationsEnabled tells the host whether to send entries
func (p *Plugin) EntryNotificationsEnabled() bool {
	return p.ready() == nil && p.config.Notifications.Entries
}

// Close unloads the plugin and closes the bus connection. Later calls to any
// notification method return ErrNotActivated.
func (p *Plugin) Close() error {
	if p == nil || p.engine == nil {
		return nil
	}

	var err error
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		log.Info().Msg("Plugin unloaded. Closing bus connection")
		err = p.publisher.Close()
	})
	return err
}

// Targets returns the target program set
func (p *Plugin) Targets() *targets.Set {
	if p == nil {
		return nil
	}
	return p.targets
}

// Slots returns the slot tracker
func (p *Plugin) Slots() *slots.Tracker {
	if p == nil {
		return nil
	}
	return p.slots
}

// Hub returns the match hub, nil when none was configured
func (p *Plugin) Hub() *notify.Hub {
	if p == nil {
		return nil
	}
	return p.hub
}

// Status is a point-in-time view for the admin API
type Status struct {
	Name           string            `json:"name"`
	Active         bool              `json:"active"`
	Channel        string            `json:"channel"`
	TargetPrograms int               `json:"target_programs"`
	UptimeSeconds  float64           `json:"uptime_seconds"`
	Notifications  map[string]int64  `json:"notifications"`
	LatestSlots    map[string]uint64 `json:"latest_slots"`
}

// Status reports counters and slot progress. A plugin that was never
// activated reports only its name.
func (p *Plugin) Status() Status {
	if p == nil || p.engine == nil {
		return Status{Name: Name}
	}

	counts := make(map[string]int64)
	p.counters.Range(func(kind geyser.Kind, c *xsync.Counter) bool {
		counts[string(kind)] = c.Value()
		return true
	})

	return Status{
		Name:           Name,
		Active:         p.active.Load() && !p.closed.Load(),
		Channel:        p.engine.Channel(),
		TargetPrograms: p.targets.Len(),
		UptimeSeconds:  time.Since(p.started).Seconds(),
		Notifications:  counts,
		LatestSlots:    p.slots.LatestAll(),
	}
}
