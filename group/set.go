package group

import (
	"errors"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/gogpu/shadertoggle/gpucore"
)

var (
	// ErrNilGroup is returned when adding a nil group.
	ErrNilGroup = errors.New("group: nil group")

	// ErrDuplicateID is returned when a group with the same ID is already present.
	ErrDuplicateID = errors.New("group: duplicate group id")
)

// Set is the device-wide collection of configured groups.
//
// Set is not safe for concurrent use; the engine guards it with its
// configuration lock.
type Set struct {
	groups map[uint32]*Group
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{groups: make(map[uint32]*Group)}
}

// Add inserts g.
func (s *Set) Add(g *Group) error {
	if g == nil {
		return ErrNilGroup
	}
	if _, dup := s.groups[g.ID]; dup {
		return ErrDuplicateID
	}
	s.groups[g.ID] = g
	return nil
}

// Remove deletes the group with id and returns it, or nil when absent.
func (s *Set) Remove(id uint32) *Group {
	g := s.groups[id]
	delete(s.groups, id)
	return g
}

// Get returns the group with id.
func (s *Set) Get(id uint32) (*Group, bool) {
	g, ok := s.groups[id]
	return g, ok
}

// Len returns the number of groups.
func (s *Set) Len() int { return len(s.groups) }

// All returns every group ordered by ID.
func (s *Set) All() []*Group {
	out := make([]*Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Active returns the active groups ordered by ID.
func (s *Set) Active() []*Group {
	all := s.All()
	out := all[:0]
	for _, g := range all {
		if g.Active {
			out = append(out, g)
		}
	}
	return out
}

// IsLive reports whether g is still in the set and active. Executors use
// it to skip tasks of groups removed after the task was queued.
func (s *Set) IsLive(g *Group) bool {
	if g == nil {
		return false
	}
	cur, ok := s.groups[g.ID]
	return ok && cur == g && g.Active
}

// Matching returns the active groups whose rule contains hash on stage.
func (s *Set) Matching(stage gpucore.ShaderStage, hash uint32) []*Group {
	var out []*Group
	for _, g := range s.Active() {
		if g.Matches(stage, hash) {
			out = append(out, g)
		}
	}
	return out
}

// SortedNames returns group names in case-insensitive collation order.
func (s *Set) SortedNames() []string {
	names := make([]string, 0, len(s.groups))
	for _, g := range s.groups {
		names = append(names, g.Name)
	}
	collate.New(language.Und, collate.IgnoreCase).SortStrings(names)
	return names
}
