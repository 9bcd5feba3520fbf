package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/maxpert/geyserbridge/cfg"
	"github.com/maxpert/geyserbridge/encoding"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "run":
		runFeed(args)
	case "watch":
		runWatch(args)
	case "version":
		fmt.Printf("pika version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`pika - geyserbridge load tool

Usage:
  pika <command> [options]

Commands:
  run       Feed synthetic slot and transaction notifications to the bridge
  watch     Print matches the bridge publishes on a Redis channel
  version   Print version
  help      Show this help

Run Options:
  --transport     Ingest transport: nats|kafka (default: nats)
  --nats-url      NATS server URL (default: nats://127.0.0.1:4222)
  --subject       NATS subject (default: geyser.notifications)
  --brokers       Comma-separated Kafka brokers
  --topic         Kafka topic (default: geyser-notifications)
  --compression   Envelope compression: none|zstd (default: none)
  --programs      Comma-separated base58 program ids to mention
  --hit-pct       % of transactions that mention a program (default: 10)
  --v2-pct        % of transactions sent as v0.0.2 (default: 50)
  --transactions  Total transactions to send (default: 10000)
  --duration      Duration to run (e.g., 60s), overrides --transactions
  --threads       Number of concurrent senders (default: 4)
  --start-slot    First slot number (default: 1)
  --tx-per-slot   Transactions per slot (default: 100)
  --keys-per-tx   Account keys per transaction (default: 8)

Watch Options:
  --bus-url       Redis URL (default: redis://127.0.0.1:6379)
  --channel       Channel to watch (default: program_transactions)
  --duration      Stop after this long (default: until interrupted)
  --quiet         Print counts instead of messages

Examples:
  pika run --programs=TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA --hit-pct=25 --transactions=50000
  pika watch --bus-url=redis://127.0.0.1:6379 --quiet`)
}

func runFeed(args []string) {
	c := &Config{}
	fs := flag.NewFlagSet("run", flag.ExitOnError)

	fs.StringVar(&c.Transport, "transport", cfg.IngestNATS, "Ingest transport")
	fs.StringVar(&c.NatsURL, "nats-url", "nats://127.0.0.1:4222", "NATS server URL")
	fs.StringVar(&c.Subject, "subject", "geyser.notifications", "NATS subject")
	fs.StringVar(&c.Brokers, "brokers", "", "Comma-separated Kafka brokers")
	fs.StringVar(&c.Topic, "topic", "geyser-notifications", "Kafka topic")
	fs.StringVar(&c.Compression, "compression", encoding.CompressionNone, "Envelope compression")
	fs.StringVar(&c.Programs, "programs", "", "Comma-separated base58 program ids")
	fs.Float64Var(&c.HitPct, "hit-pct", 10, "% of transactions that mention a program")
	fs.Float64Var(&c.V2Pct, "v2-pct", 50, "% of transactions sent as v0.0.2")
	fs.IntVar(&c.Transactions, "transactions", 10000, "Total transactions to send")
	fs.DurationVar(&c.Duration, "duration", 0, "Duration to run (overrides --transactions)")
	fs.IntVar(&c.Threads, "threads", 4, "Number of concurrent senders")
	fs.Uint64Var(&c.StartSlot, "start-slot", 1, "First slot number")
	fs.IntVar(&c.TxPerSlot, "tx-per-slot", 100, "Transactions per slot")
	fs.IntVar(&c.KeysPerTx, "keys-per-tx", 8, "Account keys per transaction")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	if err := c.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signalContext(c.Duration)
	defer cancel()

	if err := executeFeed(ctx, c); err != nil {
		fmt.Fprintf(os.Stderr, "Feed failed: %v\n", err)
		os.Exit(1)
	}
}

func executeFeed(ctx context.Context, c *Config) error {
	codec, err := encoding.NewCodec(c.Compression)
	if err != nil {
		return err
	}

	feed, err := NewFeed(c)
	if err != nil {
		return err
	}
	defer feed.Close()

	workload := NewWorkload(c)
	stats := NewStats()

	fmt.Printf("Feeding %s with %d threads, %d program(s), %.0f%% hits\n",
		c.Transport, c.Threads, len(c.ProgramList()), c.HitPct)

	reportCtx, stopReport := context.WithCancel(ctx)
	go reportProgress(reportCtx, stats)

	tokens := make(chan struct{}, c.Threads)
	var wg sync.WaitGroup
	for i := 0; i < c.Threads; i++ {
		w := NewWorker(i, feed, codec, workload, stats)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx, tokens)
		}()
	}

	start := time.Now()
	produceTokens(ctx, tokens, c.Transactions, c.Duration > 0)
	wg.Wait()
	stopReport()

	stats.PrintFinal(time.Since(start))
	return nil
}

// produceTokens emits one token per transaction. Unbounded runs stop on ctx.
func produceTokens(ctx context.Context, tokens chan<- struct{}, total int, unbounded bool) {
	defer close(tokens)
	for i := 0; unbounded || i < total; i++ {
		select {
		case <-ctx.Done():
			return
		case tokens <- struct{}{}:
		}
	}
}

func runWatch(args []string) {
	var busURL, channel string
	var duration time.Duration
	var quiet bool

	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	fs.StringVar(&busURL, "bus-url", "redis://127.0.0.1:6379", "Redis URL")
	fs.StringVar(&channel, "channel", cfg.DefaultChannel, "Channel to watch")
	fs.DurationVar(&duration, "duration", 0, "Stop after this long")
	fs.BoolVar(&quiet, "quiet", false, "Print counts instead of messages")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signalContext(duration)
	defer cancel()

	count, err := watchMatches(ctx, busURL, channel, quiet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Watch failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nReceived %d match(es)\n", count)
}

// signalContext is cancelled on SIGINT/SIGTERM or after limit, when set.
func signalContext(limit time.Duration) (context.Context, context.CancelFunc) {
	var ctx context.Context
	var cancel context.CancelFunc
	if limit > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), limit)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	// Handle interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Println("\nInterrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
