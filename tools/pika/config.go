package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
)

type Config struct {
	// Ingest transport
	Transport   string // nats or kafka
	NatsURL     string
	Subject     string
	Brokers     string
	Topic       string
	Compression string

	// Run options
	Programs     string
	HitPct       float64 // % of transactions that mention a target program
	Transactions int
	Duration     time.Duration
	Threads      int
	StartSlot    uint64
	TxPerSlot    int
	KeysPerTx    int
	V2Pct        float64 // % of transactions sent as v0.0.2

	// Watch options
	BusURL  string
	Channel string

	// Derived
	programs   []solana.PublicKey
	brokerList []string
}

func (c *Config) Validate() error {
	switch c.Transport {
	case "nats":
		if c.NatsURL == "" || c.Subject == "" {
			return fmt.Errorf("nats transport requires --nats-url and --subject")
		}
	case "kafka":
		c.brokerList = splitList(c.Brokers)
		if len(c.brokerList) == 0 || c.Topic == "" {
			return fmt.Errorf("kafka transport requires --brokers and --topic")
		}
	default:
		return fmt.Errorf("invalid transport: %s (must be nats|kafka)", c.Transport)
	}

	switch c.Compression {
	case "", "none", "zstd":
	default:
		return fmt.Errorf("invalid compression: %s", c.Compression)
	}

	c.programs = c.programs[:0]
	for _, raw := range splitList(c.Programs) {
		key, err := solana.PublicKeyFromBase58(raw)
		if err != nil {
			return fmt.Errorf("invalid program %q: %w", raw, err)
		}
		c.programs = append(c.programs, key)
	}

	if c.HitPct < 0 || c.HitPct > 100 {
		return fmt.Errorf("hit-pct must be within 0-100")
	}
	if c.HitPct > 0 && len(c.programs) == 0 {
		return fmt.Errorf("hit-pct > 0 requires --programs")
	}

	if c.V2Pct < 0 || c.V2Pct > 100 {
		return fmt.Errorf("v2-pct must be within 0-100")
	}

	if c.Threads < 1 {
		return fmt.Errorf("threads must be at least 1")
	}

	if c.Transactions < 0 {
		return fmt.Errorf("transactions must be non-negative")
	}

	if c.TxPerSlot < 1 {
		c.TxPerSlot = 1
	}

	if c.KeysPerTx < 1 {
		return fmt.Errorf("keys-per-tx must be at least 1")
	}

	return nil
}

func (c *Config) ProgramList() []solana.PublicKey {
	return c.programs
}

func (c *Config) BrokerList() []string {
	return c.brokerList
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
