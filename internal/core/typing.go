package core

import "sync"

// TypingSet tracks which users are currently typing in each pair
// channel. Entirely volatile process state; nothing here is persisted.
type TypingSet struct {
	mu     sync.Mutex
	byPair map[string]map[int64]struct{}
}

// NewTypingSet constructs an empty typing set.
func NewTypingSet() *TypingSet {
	return &TypingSet{byPair: make(map[string]map[int64]struct{})}
}

// Start adds the user to the pair's set. Returns false if the user was
// already present (the add is a no-op for the set).
func (t *TypingSet) Start(pair string, userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.byPair[pair]
	if !ok {
		set = make(map[int64]struct{})
		t.byPair[pair] = set
	}
	if _, exists := set[userID]; exists {
		return false
	}
	set[userID] = struct{}{}
	return true
}

// Stop removes the user from the pair's set. Empty sets are discarded.
func (t *TypingSet) Stop(pair string, userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.byPair[pair]
	if !ok {
		return false
	}
	if _, exists := set[userID]; !exists {
		return false
	}
	delete(set, userID)
	if len(set) == 0 {
		delete(t.byPair, pair)
	}
	return true
}

// Typing returns the users currently typing in the pair channel.
func (t *TypingSet) Typing(pair string) []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.byPair[pair]
	if !ok {
		return nil
	}
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// SweepUser removes the user from every pair set it is a member of.
// Called when the identity's last session disconnects; no compensating
// typing-stop is pushed, clients time their indicators out locally.
func (t *TypingSet) SweepUser(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for pair, set := range t.byPair {
		delete(set, userID)
		if len(set) == 0 {
			delete(t.byPair, pair)
		}
	}
}
