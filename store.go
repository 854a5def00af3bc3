package main

// ordered is an id-keyed collection that iterates in insertion order no
// matter how entries are removed.
type ordered[T any] struct {
	items []T
	ids   []string
	index map[string]int
}

func newOrdered[T any]() ordered[T] {
	return ordered[T]{index: make(map[string]int)}
}

// put appends v under id. An id already present is left untouched and put
// reports false.
func (o *ordered[T]) put(id string, v T) bool {
	if _, ok := o.index[id]; ok {
		return false
	}
	o.index[id] = len(o.items)
	o.items = append(o.items, v)
	o.ids = append(o.ids, id)
	return true
}

func (o *ordered[T]) get(id string) (T, bool) {
	i, ok := o.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return o.items[i], true
}

func (o *ordered[T]) remove(id string) bool {
	i, ok := o.index[id]
	if !ok {
		return false
	}
	delete(o.index, id)
	copy(o.items[i:], o.items[i+1:])
	copy(o.ids[i:], o.ids[i+1:])
	var zero T
	o.items[len(o.items)-1] = zero
	o.items = o.items[:len(o.items)-1]
	o.ids = o.ids[:len(o.ids)-1]
	for j := i; j < len(o.ids); j++ {
		o.index[o.ids[j]] = j
	}
	return true
}

// removeSet drops every id in set with one compaction pass.
func (o *ordered[T]) removeSet(set map[string]struct{}) int {
	if len(set) == 0 {
		return 0
	}
	n := 0
	removed := 0
	for i, id := range o.ids {
		if _, drop := set[id]; drop {
			delete(o.index, id)
			removed++
			continue
		}
		o.items[n] = o.items[i]
		o.ids[n] = id
		o.index[id] = n
		n++
	}
	var zero T
	for i := n; i < len(o.items); i++ {
		o.items[i] = zero
	}
	o.items = o.items[:n]
	o.ids = o.ids[:n]
	return removed
}

// EntityStore owns every player, food pellet and projectile. It is not
// safe for concurrent use; Game serializes access with its tick lock.
type EntityStore struct {
	players     ordered[*Player]
	food        ordered[*Food]
	projectiles ordered[*Projectile]
}

// NewEntityStore creates an empty store
func NewEntityStore() *EntityStore {
	return &EntityStore{
		players:     newOrdered[*Player](),
		food:        newOrdered[*Food](),
		projectiles: newOrdered[*Projectile](),
	}
}

func (s *EntityStore) AddPlayer(p *Player) bool { return s.players.put(p.ID, p) }

func (s *EntityStore) Player(id string) (*Player, bool) { return s.players.get(id) }

func (s *EntityStore) RemovePlayer(id string) bool { return s.players.remove(id) }

// Players returns the live backing slice in join order. Callers must not
// retain it across a mutation.
func (s *EntityStore) Players() []*Player { return s.players.items }

func (s *EntityStore) PlayerCount() int { return len(s.players.items) }

func (s *EntityStore) AddFood(f *Food) bool { return s.food.put(f.ID, f) }

func (s *EntityStore) Food(id string) (*Food, bool) { return s.food.get(id) }

func (s *EntityStore) RemoveFood(ids map[string]struct{}) int { return s.food.removeSet(ids) }

func (s *EntityStore) FoodItems() []*Food { return s.food.items }

func (s *EntityStore) FoodCount() int { return len(s.food.items) }

func (s *EntityStore) AddProjectile(p *Projectile) bool { return s.projectiles.put(p.ID, p) }

func (s *EntityStore) Projectile(id string) (*Projectile, bool) { return s.projectiles.get(id) }

func (s *EntityStore) RemoveProjectiles(ids map[string]struct{}) int {
	return s.projectiles.removeSet(ids)
}

func (s *EntityStore) Projectiles() []*Projectile { return s.projectiles.items }

func (s *EntityStore) ProjectileCount() int { return len(s.projectiles.items) }

// RemoveProjectilesOf drops every projectile fired by ownerID.
func (s *EntityStore) RemoveProjectilesOf(ownerID string) int {
	set := make(map[string]struct{})
	for _, pr := range s.projectiles.items {
		if pr.OwnerID == ownerID {
			set[pr.ID] = struct{}{}
		}
	}
	return s.projectiles.removeSet(set)
}
