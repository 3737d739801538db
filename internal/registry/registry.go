// Package registry tracks which engine references are live and which
// text pages belong to which document.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Kind is the type of a registered reference.
type Kind int

const (
	Document Kind = iota + 1
	TextPage
)

func (k Kind) String() string {
	switch k {
	case Document:
		return "document"
	case TextPage:
		return "text page"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Key identifies one engine reference.
type Key struct {
	Kind Kind
	ID   uint64
}

func (k Key) String() string {
	return fmt.Sprintf("%s %d", k.Kind, k.ID)
}

var (
	// ErrNotLive is returned for a key that is not registered.
	ErrNotLive = errors.New("registry: reference not live")
	// ErrDuplicate is returned when a live key is registered again.
	ErrDuplicate = errors.New("registry: reference already live")
	// ErrLiveChildren is returned when releasing a key whose children are
	// still registered.
	ErrLiveChildren = errors.New("registry: reference has live children")
)

type entry struct {
	parent   Key
	children map[Key]struct{}
}

// Registry is a set of live references. The zero value is ready to use and
// safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	entries map[Key]*entry
}

// Register records k as live with no parent.
func (r *Registry) Register(k Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.add(k, Key{})
}

// RegisterChild records k as live and owned by parent, which must be live.
func (r *Registry) RegisterChild(parent, k Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.entries[parent]
	if !ok {
		return fmt.Errorf("%w: parent %s", ErrNotLive, parent)
	}
	if err := r.add(k, parent); err != nil {
		return err
	}
	if p.children == nil {
		p.children = make(map[Key]struct{})
	}
	p.children[k] = struct{}{}
	return nil
}

func (r *Registry) add(k, parent Key) error {
	if r.entries == nil {
		r.entries = make(map[Key]*entry)
	}
	if _, ok := r.entries[k]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, k)
	}
	r.entries[k] = &entry{parent: parent}
	return nil
}

// Release removes k. It fails if k is not live or still has live children.
func (r *Registry) Release(k Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[k]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotLive, k)
	}
	if len(e.children) > 0 {
		return fmt.Errorf("%w: %s has %d", ErrLiveChildren, k, len(e.children))
	}
	delete(r.entries, k)
	if p, ok := r.entries[e.parent]; ok {
		delete(p.children, k)
	}
	return nil
}

// Children returns the live children of k ordered by ID.
func (r *Registry) Children(k Key) []Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[k]
	if !ok {
		return nil
	}
	out := make([]Key, 0, len(e.children))
	for c := range e.children {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of live references of kind k.
func (r *Registry) Len(k Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for key := range r.entries {
		if key.Kind == k {
			n++
		}
	}
	return n
}
