package techniques

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	rbt "github.com/emirpasic/gods/v2/trees/redblacktree"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Reserved techniques the engine renders itself around group work. They
// are never part of the user-visible render order.
const (
	TonemapToSDR = "TonemapToSDR [REST.fx]"
	TonemapToHDR = "TonemapToHDR [REST.fx]"
	Flip         = "Flip [REST.fx]"
	RestoreAlpha = "RestoreAlpha [REST.fx]"
)

// AlphaSource is the texture binding RestoreAlpha reads the saved alpha
// channel from.
const AlphaSource = "REST_AlphaSource"


var (
	// ErrUnknownTechnique is returned for names that were never loaded.
	ErrUnknownTechnique = errors.New("techniques: unknown technique")

	// ErrReorderMismatch is returned when a reorder list is not a
	// permutation of the loaded techniques.
	ErrReorderMismatch = errors.New("techniques: reorder list does not match loaded techniques")
)

// Key builds the table key for a technique declared in an effect file.
func Key(technique, effect string) string {
	return fmt.Sprintf("%s [%s]", technique, effect)
}

// IsReserved reports whether key names one of the engine's own techniques.
func IsReserved(key string) bool {
	switch key {
	case TonemapToSDR, TonemapToHDR, Flip, RestoreAlpha:
		return true
	}
	return false
}

// Split returns the technique and effect parts of a key.
func Split(key string) (technique, effect string) {
	i := strings.LastIndex(key, " [")
	if i < 0 || !strings.HasSuffix(key, "]") {
		return key, ""
	}
	return key[:i], key[i+2 : len(key)-1]
}

type state struct {
	enabled  bool
	rendered bool
}

// Table tracks the enabled techniques, their render order and whether each
// has already rendered during the current frame.
//
// Thread Safety:
// Table is safe for concurrent use. Recording threads query and mark
// techniques while the configuration thread reloads or reorders them.
type Table struct {
	mu     sync.RWMutex
	states map[string]*state
	order  *rbt.Tree[int, string]
	next   int
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		states: make(map[string]*state),
		order:  rbt.New[int, string](),
	}
}

// Load replaces the table contents with names, in render order. Reserved
// techniques are accepted but kept out of the order.
func (t *Table) Load(names []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.states = make(map[string]*state, len(names))
	t.order.Clear()
	t.next = 0
	for _, name := range names {
		if _, dup := t.states[name]; dup {
			continue
		}
		t.states[name] = &state{}
		if !IsReserved(name) {
			t.order.Put(t.next, name)
			t.next++
		}
	}
}

// Len returns the number of loaded techniques, reserved ones included.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.states)
}

// Has reports whether a technique is loaded, reserved ones included.
func (t *Table) Has(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.states[name]
	return ok
}

// SetEnabled enables or disables a technique.
func (t *Table) SetEnabled(name string, enabled bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTechnique, name)
	}
	st.enabled = enabled
	return nil
}

// Enabled reports whether a technique is loaded and enabled.
func (t *Table) Enabled(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, ok := t.states[name]
	return ok && st.enabled
}

// Rendered reports whether a technique already rendered this frame.
func (t *Table) Rendered(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, ok := t.states[name]
	return ok && st.rendered
}

// Pending reports whether a technique is enabled and has not rendered
// this frame.
func (t *Table) Pending(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, ok := t.states[name]
	return ok && st.enabled && !st.rendered
}

// MarkRendered flags a technique as rendered for the current frame.
// It returns false when the technique is unknown or was already rendered.
func (t *Table) MarkRendered(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[name]
	if !ok || st.rendered {
		return false
	}
	st.rendered = true
	return true
}

// ResetFrame clears every rendered flag. Called once per presented frame.
func (t *Table) ResetFrame() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, st := range t.states {
		st.rendered = false
	}
}

// Reorder sets a new render order. names must be a permutation of the
// loaded non-reserved techniques.
func (t *Table) Reorder(names []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(names) != t.order.Size() {
		return ErrReorderMismatch
	}
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := t.states[name]; !ok || IsReserved(name) {
			return fmt.Errorf("%w: %q", ErrReorderMismatch, name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate %q", ErrReorderMismatch, name)
		}
		seen[name] = struct{}{}
	}

	t.order.Clear()
	t.next = 0
	for _, name := range names {
		t.order.Put(t.next, name)
		t.next++
	}
	return nil
}

// Ordered returns the enabled non-reserved techniques in render order.
func (t *Table) Ordered() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, 0, t.order.Size())
	it := t.order.Iterator()
	for it.Next() {
		name := it.Value()
		if t.states[name].enabled {
			out = append(out, name)
		}
	}
	return out
}

// Names returns every non-reserved technique in render order.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.order.Values()
}

// Position returns the render position of name.
func (t *Table) Position(name string) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	it := t.order.Iterator()
	for it.Next() {
		if it.Value() == name {
			return it.Key(), true
		}
	}
	return 0, false
}

// SortedNames returns every non-reserved technique in case-insensitive
// collation order, for listings.
func (t *Table) SortedNames() []string {
	names := t.Names()
	collate.New(language.Und, collate.IgnoreCase).SortStrings(names)
	return names
}
