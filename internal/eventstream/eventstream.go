// Package eventstream subscribes to the pool's event-stream topic over
// libp2p pubsub and decodes ShieldEvent/TransferEvent/SwapEvent
// messages into wallet.ChainEvent values a Wallet can fold.
package eventstream

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/multiformats/go-multiaddr"

	"github.com/ccoin/shield/pkg/codec"
	"github.com/ccoin/shield/pkg/wallet"
)

// wireEvent is the JSON shape published on the topic; it carries both
// event kinds so a single topic can interleave shield, transfer, and
// swap events in ledger order.
type wireEvent struct {
	Kind             string `json:"kind"`             // "commitment" | "nullifier"
	Source           string `json:"source,omitempty"` // "shield" | "transfer", set for "commitment"
	CommitmentHex    string `json:"commitment_hex,omitempty"`
	EnvelopeHex      string `json:"envelope_hex,omitempty"`
	NullifierHex     string `json:"nullifier_hex,omitempty"`
	BlockHeight      uint64 `json:"block_height"`
	TransactionIndex uint64 `json:"transaction_index"`
	OutputIndex      uint64 `json:"output_index"`
}

// Config configures the subscriber's libp2p host.
type Config struct {
	ListenAddrs []string
	Topic       string
}

// DefaultConfig returns a reasonable default subscriber configuration.
func DefaultConfig() *Config {
	return &Config{
		ListenAddrs: []string{"/ip4/0.0.0.0/tcp/9100"},
		Topic:       "shield/events/v1",
	}
}

// Subscriber consumes a pubsub topic; the caller pulls decoded events
// from it with Next, one at a time, in arrival order.
type Subscriber struct {
	mu   sync.Mutex
	host host.Host
	ps   *pubsub.PubSub
	sub  *pubsub.Subscription
}

// NewSubscriber creates a libp2p host, joins the configured pubsub
// topic, and subscribes to it.
func NewSubscriber(ctx context.Context, cfg *Config) (*Subscriber, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	priv, _, err := crypto.GenerateKeyPairWithReader(crypto.Ed25519, -1, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("eventstream: generating host key: %w", err)
	}

	listenAddrs := make([]multiaddr.Multiaddr, len(cfg.ListenAddrs))
	for i, addr := range cfg.ListenAddrs {
		ma, err := multiaddr.NewMultiaddr(addr)
		if err != nil {
			return nil, fmt.Errorf("eventstream: invalid listen address %q: %w", addr, err)
		}
		listenAddrs[i] = ma
	}

	h, err := libp2p.New(libp2p.Identity(priv), libp2p.ListenAddrs(listenAddrs...))
	if err != nil {
		return nil, fmt.Errorf("eventstream: creating host: %w", err)
	}

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("eventstream: creating pubsub: %w", err)
	}

	topic, err := ps.Join(cfg.Topic)
	if err != nil {
		return nil, fmt.Errorf("eventstream: joining topic %q: %w", cfg.Topic, err)
	}
	sub, err := topic.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("eventstream: subscribing to topic %q: %w", cfg.Topic, err)
	}

	return &Subscriber{host: h, ps: ps, sub: sub}, nil
}

// Close tears down the subscription and the underlying host.
func (s *Subscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sub.Cancel()
	return s.host.Close()
}

// Next blocks until the next message arrives, decodes it, and returns
// the equivalent wallet.ChainEvent. A malformed message is skipped and
// the next valid one is returned instead — scanning must not abort on
// a single corrupt entry.
func (s *Subscriber) Next(ctx context.Context) (wallet.ChainEvent, error) {
	for {
		msg, err := s.sub.Next(ctx)
		if err != nil {
			return wallet.ChainEvent{}, fmt.Errorf("eventstream: receiving message: %w", err)
		}
		ev, ok := decode(msg.Data)
		if !ok {
			continue
		}
		return ev, nil
	}
}

func decode(data []byte) (wallet.ChainEvent, bool) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return wallet.ChainEvent{}, false
	}

	ev := wallet.ChainEvent{
		BlockHeight: w.BlockHeight,
		TxIndex:     w.TransactionIndex,
		OutputIndex: w.OutputIndex,
	}

	switch w.Kind {
	case "commitment":
		commitmentBytes, err := codec.FromHex(w.CommitmentHex)
		if err != nil || len(commitmentBytes) != 32 {
			return wallet.ChainEvent{}, false
		}
		commitment, err := codec.FromLE32(commitmentBytes)
		if err != nil {
			return wallet.ChainEvent{}, false
		}
		ev.Kind = wallet.EventCommitment
		if w.Source == "transfer" {
			ev.Source = wallet.SourceTransfer
		} else {
			ev.Source = wallet.SourceShield
		}
		ev.Commitment = commitment
		if w.EnvelopeHex != "" {
			envelope, err := codec.FromHex(w.EnvelopeHex)
			if err != nil {
				return wallet.ChainEvent{}, false
			}
			ev.Envelope = envelope
		}
		return ev, true
	case "nullifier":
		nullifierBytes, err := codec.FromHex(w.NullifierHex)
		if err != nil || len(nullifierBytes) != 32 {
			return wallet.ChainEvent{}, false
		}
		nullifier, err := codec.FromBE32(nullifierBytes)
		if err != nil {
			return wallet.ChainEvent{}, false
		}
		ev.Kind = wallet.EventNullifier
		ev.Nullifier = nullifier
		return ev, true
	default:
		return wallet.ChainEvent{}, false
	}
}
