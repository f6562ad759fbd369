// Command shieldctl runs a wallet scan daemon: it connects to
// PostgreSQL for persisted cursors, subscribes to the pool's event
// stream over libp2p pubsub, and folds incoming events into local
// wallet state.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ccoin/shield/internal/config"
	"github.com/ccoin/shield/internal/eventstream"
	"github.com/ccoin/shield/internal/logging"
	"github.com/ccoin/shield/internal/walletstore"
	"github.com/ccoin/shield/pkg/codec"
	"github.com/ccoin/shield/pkg/keys"
	"github.com/ccoin/shield/pkg/wallet"
)

const version = "0.1.0"

type cliFlags struct {
	configPath  string
	spendingKey string
	useMemStore bool
}

func main() {
	flags := parseFlags()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nshutting down...")
		cancel()
	}()

	if err := run(ctx, flags); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() *cliFlags {
	f := &cliFlags{}
	flag.StringVar(&f.configPath, "config", "", "path to JSON config file (empty uses defaults)")
	flag.StringVar(&f.spendingKey, "spending-key", "", "hex-encoded spending key (required)")
	flag.BoolVar(&f.useMemStore, "mem-store", false, "use an in-memory cursor store instead of PostgreSQL")
	flag.Parse()
	return f
}

func run(ctx context.Context, flags *cliFlags) error {
	fmt.Printf("shieldctl v%s\n", version)

	if flags.spendingKey == "" {
		return fmt.Errorf("-spending-key is required")
	}
	skBytes, err := codec.FromHex(flags.spendingKey)
	if err != nil {
		return fmt.Errorf("parsing spending key: %w", err)
	}
	sk := new(big.Int).SetBytes(skBytes)
	kp, err := keys.NewKeypair(sk)
	if err != nil {
		return fmt.Errorf("deriving keypair: %w", err)
	}

	var cfg *config.Config
	if flags.configPath != "" {
		cfg, err = config.Load(flags.configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Default()
	}

	logger, err := logging.NewFromFile(cfg.LogFile, logging.ParseLevel(cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	mpkLE := codec.LE32(kp.MasterPublicKey)
	logger.Infof("derived master public key %s", codec.ToHex(mpkLE[:]))

	var store walletstore.Store
	if flags.useMemStore {
		store = walletstore.NewInMemoryStore()
	} else {
		pgCfg := &walletstore.Config{
			Host: cfg.DBHost, Port: cfg.DBPort, User: cfg.DBUser,
			Password: cfg.DBPassword, Database: cfg.DBName, SSLMode: cfg.DBSSLMode, MaxConns: cfg.DBMaxConns,
		}
		pg, err := walletstore.NewPostgresStore(ctx, pgCfg)
		if err != nil {
			return fmt.Errorf("connecting to wallet store: %w", err)
		}
		defer pg.Close()
		store = pg
	}
	mpkHex := codec.ToHex(mpkLE[:])
	var lastShieldCursor, lastTransferCursor string
	if cursor, err := store.LoadCursor(ctx, cfg.PoolID, mpkHex); err == nil {
		logger.Infof("loaded persisted cursor (last scan %s)", cursor.LastScanTime)
		lastShieldCursor = cursor.LastShieldCursor
		lastTransferCursor = cursor.LastTransferCursor
	} else if !errors.Is(err, walletstore.ErrNotFound) {
		return fmt.Errorf("loading cursor: %w", err)
	} else {
		logger.Infof("no persisted cursor, scanning from genesis")
	}

	sub, err := eventstream.NewSubscriber(ctx, &eventstream.Config{
		ListenAddrs: cfg.ListenAddrs,
		Topic:       cfg.EventTopic,
	})
	if err != nil {
		return fmt.Errorf("starting event subscriber: %w", err)
	}
	defer sub.Close()

	w := wallet.New(kp)

	logger.Infof("scanning pool %s", cfg.PoolID)
	fmt.Println("press ctrl+c to stop.")

	for {
		ev, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Warnf("event decode error: %v", err)
			continue
		}
		if err := w.ScanEvent(ev); err != nil {
			logger.Warnf("scan error: %v", err)
			continue
		}

		// Every successfully folded commitment event advances the cursor
		// for its source stream (§6.3), and the cursor state is saved
		// after every folded event. The wallet itself starts from an
		// empty tree on each run: loaded cursors are only carried into
		// later saves and do not make the scan skip or replay any event.
		if ev.Kind == wallet.EventCommitment {
			eventCursor := fmt.Sprintf("%d:%d:%d", ev.BlockHeight, ev.TxIndex, ev.OutputIndex)
			if ev.Source == wallet.SourceTransfer {
				lastTransferCursor = eventCursor
			} else {
				lastShieldCursor = eventCursor
			}
		}
		state := &walletstore.CursorState{
			PoolID:             cfg.PoolID,
			MasterPublicKey:    mpkHex,
			LastShieldCursor:   lastShieldCursor,
			LastTransferCursor: lastTransferCursor,
			LastScanTime:       time.Now(),
			CachedCommitments:  cachedCommitments(w),
		}
		if err := store.SaveCursor(ctx, state); err != nil {
			logger.Warnf("saving cursor: %v", err)
		}
	}

	fmt.Println("stopped.")
	return nil
}

func cachedCommitments(w *wallet.Wallet) []walletstore.CachedCommitment {
	notes := w.AllNotes()
	out := make([]walletstore.CachedCommitment, 0, len(notes))
	for _, n := range notes {
		commitment := codec.BE32(n.Note.Commitment)
		out = append(out, walletstore.CachedCommitment{
			CommitmentHex: codec.ToHex(commitment[:]),
			LeafIndex:     n.LeafIndex,
		})
	}
	return out
}
