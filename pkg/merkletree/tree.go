// Package merkletree implements the depth-16 incremental Poseidon Merkle
// tree that mirrors the on-chain commitment tree exactly: any divergence
// between this tree and the chain's makes proofs invalid. Insertion is
// O(depth) via cached filled_subtrees, never storing the full tree.
package merkletree

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ccoin/shield/pkg/field"
)

// Depth is the fixed tree depth. Capacity is 2^Depth leaves.
const (
	Depth    = 16
	Capacity = 1 << Depth

	// historySize is the rolling window of accepted roots; the chain
	// accepts a proof only against a root still in this window.
	historySize = 100
)

// ErrTreeFull is returned by Insert once Capacity leaves have been
// inserted.
var ErrTreeFull = errors.New("merkletree: tree is full")

// ErrLeafNotFound is returned when a path is requested for an index that
// has not been inserted yet.
var ErrLeafNotFound = errors.New("merkletree: leaf index not inserted")

// zeros[l] is the Poseidon hash of an empty subtree of height l:
// zeros[0] = 0 (the empty leaf), zeros[i] = Poseidon(zeros[i-1], zeros[i-1]).
// This reflects the on-chain contract's convention (not the alternate,
// superseded convention zeros[0] = Poseidon(0,0) found in an earlier
// design doc).
var zeros = computeZeros()

func computeZeros() [Depth + 1]*big.Int {
	var z [Depth + 1]*big.Int
	z[0] = big.NewInt(0)
	for i := 1; i <= Depth; i++ {
		z[i] = field.Poseidon(z[i-1], z[i-1])
	}
	return z
}

// EmptyRoot returns the root of a tree with no inserted leaves.
func EmptyRoot() *big.Int {
	return new(big.Int).Set(zeros[Depth])
}

type snapshot struct {
	filledSubtrees [Depth]*big.Int
}

// Tree is an append-only incremental Merkle tree over field-element
// leaves (note commitments, or the zero leaf).
type Tree struct {
	mu sync.RWMutex

	leaves         []*big.Int
	nextIndex      uint64
	filledSubtrees [Depth]*big.Int
	root           *big.Int
	history        []*big.Int // ring buffer, oldest-first, capped at historySize
	snapshots      []snapshot // snapshots[i] = filledSubtrees right after leaves[i] was inserted
}

// New creates an empty tree.
func New() *Tree {
	t := &Tree{
		root: EmptyRoot(),
	}
	for i := range t.filledSubtrees {
		t.filledSubtrees[i] = new(big.Int).Set(zeros[i])
	}
	t.history = append(t.history, new(big.Int).Set(t.root))
	return t
}

// Insert appends leaf at the next available index and returns that
// index. It fails with ErrTreeFull once Capacity leaves are inserted.
func (t *Tree) Insert(leaf *big.Int) (uint64, error) {
	field.MustInRange(leaf, "leaf")

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.nextIndex == Capacity {
		return 0, ErrTreeFull
	}

	index := t.nextIndex
	idx := index
	current := new(big.Int).Set(leaf)
	newFilled := t.filledSubtrees // array copy

	for level := 0; level < Depth; level++ {
		if idx&1 == 0 {
			newFilled[level] = new(big.Int).Set(current)
			current = field.Poseidon(current, zeros[level])
		} else {
			current = field.Poseidon(newFilled[level], current)
		}
		idx >>= 1
	}

	t.filledSubtrees = newFilled
	t.root = current
	t.leaves = append(t.leaves, new(big.Int).Set(leaf))
	t.snapshots = append(t.snapshots, snapshot{filledSubtrees: newFilled})
	t.pushHistory(current)
	t.nextIndex++

	return index, nil
}

func (t *Tree) pushHistory(root *big.Int) {
	t.history = append(t.history, new(big.Int).Set(root))
	if len(t.history) > historySize {
		t.history = t.history[len(t.history)-historySize:]
	}
}

// Root returns the current root.
func (t *Tree) Root() *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return new(big.Int).Set(t.root)
}

// NextIndex returns the number of leaves inserted so far.
func (t *Tree) NextIndex() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nextIndex
}

// InHistory reports whether root is among the last 100 roots the tree
// has produced (the window the on-chain contract accepts proofs
// against).
func (t *Tree) InHistory(root *big.Int) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, r := range t.history {
		if r.Cmp(root) == 0 {
			return true
		}
	}
	return false
}

// Path is a Merkle inclusion path: Siblings[l] is the sibling at level
// l, and bit l of Index selects whether the leaf is the left (0) or
// right (1) child at that level.
type Path struct {
	Siblings [Depth]*big.Int
	Index    uint64
}

// PathAt extracts the inclusion path for the leaf at the given absolute
// index, as of the moment that leaf was inserted. This is valid for any
// previously-inserted index, not just the most recently inserted one:
// for level l the sibling is zeros[l] when the leaf sits at an even
// position (its right sibling was not yet inserted), or the
// filled_subtrees value captured right after this leaf's own insertion
// when it sits at an odd position (that value was set by an earlier,
// already-committed left sibling and is never touched by the leaf's own
// insertion step).
func (t *Tree) PathAt(index uint64) (Path, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if index >= uint64(len(t.leaves)) {
		return Path{}, ErrLeafNotFound
	}

	snap := t.snapshots[index]
	var path Path
	path.Index = index
	idx := index
	for level := 0; level < Depth; level++ {
		if idx&1 == 0 {
			path.Siblings[level] = new(big.Int).Set(zeros[level])
		} else {
			path.Siblings[level] = new(big.Int).Set(snap.filledSubtrees[level])
		}
		idx >>= 1
	}
	return path, nil
}

// CurrentPath recomputes the inclusion path for the leaf at index
// against the tree's current state, rather than the state right after
// that leaf's own insertion. Unlike PathAt, a sibling subtree that was
// empty when index was inserted but has since been filled by later
// insertions is reflected here — the two paths for two different
// leaves obtained via CurrentPath at the same point in time always
// reconstruct the same (current) root, which PathAt does not
// guarantee. Building a witness that spends more than one input must
// use this, not PathAt, or the inputs' proofs will not share a root.
//
// This walks the full depth-16 leaf layer (zero-padded), so its cost
// is proportional to tree capacity rather than depth; callers needing
// many paths in one pass should batch rather than calling this in a
// loop.
func (t *Tree) CurrentPath(index uint64) (Path, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if index >= uint64(len(t.leaves)) {
		return Path{}, ErrLeafNotFound
	}

	level := make([]*big.Int, Capacity)
	for i := range level {
		if i < len(t.leaves) {
			level[i] = t.leaves[i]
		} else {
			level[i] = zeros[0]
		}
	}

	var path Path
	path.Index = index
	idx := index
	for d := 0; d < Depth; d++ {
		sibling := idx ^ 1
		path.Siblings[d] = new(big.Int).Set(level[sibling])

		next := make([]*big.Int, len(level)/2)
		for i := range next {
			next[i] = field.Poseidon(level[2*i], level[2*i+1])
		}
		level = next
		idx >>= 1
	}
	return path, nil
}

// RootFromPath recomputes the root implied by a leaf and its path,
// independent of any Tree instance. The result equals the tree's root
// at the moment that leaf was the most recently inserted one sharing
// this path (Universal invariant 4).
func RootFromPath(leaf *big.Int, path Path) *big.Int {
	field.MustInRange(leaf, "leaf")
	cur := new(big.Int).Set(leaf)
	idx := path.Index
	for level := 0; level < Depth; level++ {
		if idx&1 == 0 {
			cur = field.Poseidon(cur, path.Siblings[level])
		} else {
			cur = field.Poseidon(path.Siblings[level], cur)
		}
		idx >>= 1
	}
	return cur
}

// RebuildFullTree independently recomputes the root of a complete binary
// tree of depth Depth built from leaves, zero-padded on the right, by a
// bottom-up level-by-level pass rather than incremental insertion. Used
// to cross-check (Universal invariant 3) that incremental insertion and
// a from-scratch build of the same leaf set agree.
func RebuildFullTree(leaves []*big.Int) *big.Int {
	if len(leaves) > Capacity {
		panic("merkletree: more leaves than tree capacity")
	}

	level := make([]*big.Int, Capacity)
	for i := range level {
		if i < len(leaves) {
			field.MustInRange(leaves[i], "leaf")
			level[i] = leaves[i]
		} else {
			level[i] = zeros[0]
		}
	}

	for d := 0; d < Depth; d++ {
		next := make([]*big.Int, len(level)/2)
		for i := range next {
			next[i] = field.Poseidon(level[2*i], level[2*i+1])
		}
		level = next
	}
	return level[0]
}

// Reconstruct replays an ordered list of commitments (e.g. the events
// from a rescan, already tie-broken by (block_height, transaction_index,
// intra_tx_output_index)) into a fresh tree.
func Reconstruct(orderedCommitments []*big.Int) (*Tree, error) {
	t := New()
	for _, c := range orderedCommitments {
		if _, err := t.Insert(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}
