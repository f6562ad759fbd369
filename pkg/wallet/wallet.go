// Package wallet implements the client-side scanning and note-selection
// state machine: it consumes chain events in order, recognizes notes
// that decrypt under the wallet's own viewing key, tracks which are
// later spent, and selects inputs for new transactions.
package wallet

import (
	"errors"
	"math/big"
	"sort"
	"sync"

	"github.com/ccoin/shield/pkg/codec"
	"github.com/ccoin/shield/pkg/keys"
	"github.com/ccoin/shield/pkg/merkletree"
	"github.com/ccoin/shield/pkg/noteenc"
	"github.com/ccoin/shield/pkg/witness"
)

// ErrInsufficientFunds is returned by a selection algorithm when the
// wallet's unspent notes in a token do not cover the requested amount.
var ErrInsufficientFunds = errors.New("wallet: insufficient funds")

// EventKind distinguishes the two event types the pool emits.
type EventKind uint8

const (
	EventCommitment EventKind = iota
	EventNullifier
)

// EventSource distinguishes which on-chain event stream a commitment
// event was fetched from. Shield and transfer/swap events are persisted
// under separate cursors (§6.3), so a caller folding events in also
// needs to know which cursor a given event advances.
type EventSource uint8

const (
	SourceShield EventSource = iota
	SourceTransfer
)

// ChainEvent is one entry from the pool's event log, already ordered by
// (block_height, transaction_index, intra_tx_output_index) — the
// wallet never reorders events itself.
type ChainEvent struct {
	Kind        EventKind
	Source      EventSource // meaningful only for EventCommitment
	Commitment  *big.Int    // set for EventCommitment
	Envelope    []byte      // set for EventCommitment, may be nil if unencrypted/foreign
	Nullifier   *big.Int    // set for EventNullifier
	BlockHeight uint64
	TxIndex     uint64
	OutputIndex uint64
}

// OwnedNote is a note this wallet has recognized as its own, together
// with its position in the commitment tree and spend status.
type OwnedNote struct {
	Note        *keys.Note
	LeafIndex   uint64
	BlockHeight uint64
	Spent       bool
}

func commitmentKey(c *big.Int) string {
	b := codec.BE32(c)
	return codec.ToHex(b[:])
}

// Wallet is the per-keypair scanning state machine. One Wallet instance
// owns one keypair's view of the pool; the mutex serializes ScanEvent
// against concurrent reads from Balance/SpendableNotes, since a scan
// mutates the tree, the note index, and the nullifier set together.
type Wallet struct {
	mu sync.Mutex

	keypair   *keys.Keypair
	tree      *merkletree.Tree
	notes     map[string]*OwnedNote // keyed by commitment hex
	byIndex   map[uint64]*OwnedNote // keyed by leaf index
	spentNull map[string]bool       // keyed by nullifier hex
}

// New creates an empty wallet scanning state for kp.
func New(kp *keys.Keypair) *Wallet {
	return &Wallet{
		keypair:   kp,
		tree:      merkletree.New(),
		notes:     make(map[string]*OwnedNote),
		byIndex:   make(map[uint64]*OwnedNote),
		spentNull: make(map[string]bool),
	}
}

// ScanEvent folds one chain event into the wallet's state: a commitment
// event advances the tree and, if the attached envelope decrypts under
// this wallet's viewing key, records a new OwnedNote; a nullifier event
// marks the corresponding owned note (if any) as spent.
func (w *Wallet) ScanEvent(ev ChainEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch ev.Kind {
	case EventCommitment:
		leafIndex, err := w.tree.Insert(ev.Commitment)
		if err != nil {
			return err
		}
		if ev.Envelope == nil {
			return nil
		}
		note, ok, err := noteenc.Decrypt(ev.Envelope, w.keypair)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		owned := &OwnedNote{Note: note, LeafIndex: leafIndex, BlockHeight: ev.BlockHeight}
		w.notes[commitmentKey(note.Commitment)] = owned
		w.byIndex[leafIndex] = owned

		// A nullifier for this note may have already been observed (the
		// pool can emit events for a note's creation and its own spend in
		// the same scan batch when replaying history); reconcile now.
		nullifier := keys.ComputeNullifier(w.keypair.NullifyingKey, leafIndex)
		if w.spentNull[commitmentKey(nullifier)] {
			owned.Spent = true
		}
	case EventNullifier:
		w.spentNull[commitmentKey(ev.Nullifier)] = true
		for _, owned := range w.byIndex {
			if owned.Spent {
				continue
			}
			n := keys.ComputeNullifier(w.keypair.NullifyingKey, owned.LeafIndex)
			if n.Cmp(ev.Nullifier) == 0 {
				owned.Spent = true
				break
			}
		}
	}
	return nil
}

// Balance sums the value of unspent notes of the given token.
func (w *Wallet) Balance(token *big.Int) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	var total uint64
	for _, n := range w.notes {
		if !n.Spent && n.Note.Token.Cmp(token) == 0 {
			total += n.Note.Value
		}
	}
	return total
}

// SpendableNotes returns every unspent note of the given token.
func (w *Wallet) SpendableNotes(token *big.Int) []*OwnedNote {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []*OwnedNote
	for _, n := range w.notes {
		if !n.Spent && n.Note.Token.Cmp(token) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// AllNotes returns every note this wallet has ever recognized, spent or
// not — used to rebuild the persisted commitment cache (§6.3), which is
// a resume accelerant rather than authoritative spend-state.
func (w *Wallet) AllNotes() []*OwnedNote {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*OwnedNote, 0, len(w.notes))
	for _, n := range w.notes {
		out = append(out, n)
	}
	return out
}

// spendableInput resolves the note's current Merkle path (not its
// insertion-time path) so that when it is combined with another input
// in the same witness, both proofs are anchored to the same root.
func (w *Wallet) spendableInput(n *OwnedNote) (witness.SpendableInput, error) {
	path, err := w.tree.CurrentPath(n.LeafIndex)
	if err != nil {
		return witness.SpendableInput{}, err
	}
	return witness.SpendableInput{Note: n.Note, LeafPath: path, Keypair: w.keypair}, nil
}

// UnshieldStep is one leg of a multi-note unshield plan: Input is spent
// unshielding UnshieldAmount of its value, with the remainder becoming
// that input's own change output (handled by BuildUnshieldWitness).
type UnshieldStep struct {
	Input          witness.SpendableInput
	UnshieldAmount uint64
}

// PlanUnshieldSequence implements the greedy-largest multi-note unshield
// algorithm: unspent notes of token are sorted by value descending and
// consumed in that order until the cumulative unshielded amount reaches
// target. Every step but the last consumes its note in full; the last
// step partially unshields its note, leaving the remainder as that
// note's own change. Each step in the returned plan corresponds to one
// separate unshield proof submitted in sequence. Fails with
// ErrInsufficientFunds if the wallet's total balance in token is less
// than target.
func (w *Wallet) PlanUnshieldSequence(token *big.Int, target uint64) ([]UnshieldStep, error) {
	w.mu.Lock()
	var notes []*OwnedNote
	for _, n := range w.notes {
		if !n.Spent && n.Note.Token.Cmp(token) == 0 {
			notes = append(notes, n)
		}
	}
	w.mu.Unlock()

	sort.Slice(notes, func(i, j int) bool { return notes[i].Note.Value > notes[j].Note.Value })

	var steps []UnshieldStep
	remaining := target
	for _, n := range notes {
		if remaining == 0 {
			break
		}
		amount := n.Note.Value
		if amount > remaining {
			amount = remaining
		}
		in, err := w.spendableInput(n)
		if err != nil {
			return nil, err
		}
		steps = append(steps, UnshieldStep{Input: in, UnshieldAmount: amount})
		remaining -= amount
	}
	if remaining > 0 {
		return nil, ErrInsufficientFunds
	}
	return steps, nil
}

// SelectForSpend picks up to two unspent notes of token whose combined
// value covers amount, minimizing leftover change: it first looks for a
// single note that covers amount exactly or with the least overshoot,
// then falls back to the two-note combination with the smallest
// non-negative overshoot.
func (w *Wallet) SelectForSpend(token *big.Int, amount uint64) ([]witness.SpendableInput, error) {
	w.mu.Lock()
	var notes []*OwnedNote
	for _, n := range w.notes {
		if !n.Spent && n.Note.Token.Cmp(token) == 0 {
			notes = append(notes, n)
		}
	}
	w.mu.Unlock()

	var bestSingle *OwnedNote
	for _, n := range notes {
		if n.Note.Value < amount {
			continue
		}
		if bestSingle == nil || n.Note.Value < bestSingle.Note.Value {
			bestSingle = n
		}
	}
	if bestSingle != nil {
		in, err := w.spendableInput(bestSingle)
		if err != nil {
			return nil, err
		}
		return []witness.SpendableInput{in}, nil
	}

	var bestPair [2]*OwnedNote
	bestOvershoot := uint64(0)
	found := false
	for i := 0; i < len(notes); i++ {
		for j := i + 1; j < len(notes); j++ {
			sum := notes[i].Note.Value + notes[j].Note.Value
			if sum < amount {
				continue
			}
			overshoot := sum - amount
			if !found || overshoot < bestOvershoot {
				found = true
				bestOvershoot = overshoot
				bestPair = [2]*OwnedNote{notes[i], notes[j]}
			}
		}
	}
	if !found {
		return nil, ErrInsufficientFunds
	}
	in1, err := w.spendableInput(bestPair[0])
	if err != nil {
		return nil, err
	}
	in2, err := w.spendableInput(bestPair[1])
	if err != nil {
		return nil, err
	}
	return []witness.SpendableInput{in1, in2}, nil
}

// Tree exposes the wallet's local copy of the commitment tree, e.g. for
// a caller that needs the current root independent of any witness build.
func (w *Wallet) Tree() *merkletree.Tree {
	return w.tree
}

// Keypair returns the wallet's owning keypair.
func (w *Wallet) Keypair() *keys.Keypair {
	return w.keypair
}
