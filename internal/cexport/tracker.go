package cexport

import "sadx-decompiler/internal/scene"

// Tracker records which entities already have a definition in the current
// output. Entities are keyed by kind and identity, never by name.
type Tracker struct {
	seen map[any]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{seen: make(map[any]struct{})}
}

// add reports whether key was new. key must be a pointer.
func (t *Tracker) add(key any) bool {
	if _, ok := t.seen[key]; ok {
		return false
	}
	t.seen[key] = struct{}{}
	return true
}

func (t *Tracker) AddObject(o *scene.Object) bool    { return t.add(o) }
func (t *Tracker) AddAttach(a *scene.Attach) bool    { return t.add(a) }
func (t *Tracker) AddAction(a *scene.AnimHead) bool  { return t.add(a) }
func (t *Tracker) AddMotion(m *scene.AnimHead2) bool { return t.add(m) }

func (t *Tracker) AddMaterials(c *scene.Collection[scene.Material]) bool { return t.add(c) }
func (t *Tracker) AddVectors(c *scene.Collection[scene.Vector3]) bool    { return t.add(c) }

// Len returns the number of tracked entities.
func (t *Tracker) Len() int { return len(t.seen) }
