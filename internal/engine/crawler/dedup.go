package crawler

import "github.com/rendis/placetap/internal/model"

// Deduplicator remembers the identity keys already emitted.
type Deduplicator struct {
	seen map[string]struct{}
}

func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{})}
}

// Accept reports whether rec is new, remembering its key if so.
func (d *Deduplicator) Accept(rec model.Record) bool {
	key := rec.Key()
	if _, dup := d.seen[key]; dup {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

// Len returns the number of distinct keys seen.
func (d *Deduplicator) Len() int {
	return len(d.seen)
}

// Valid reports whether rec carries the fields required for persistence.
func Valid(rec model.Record) bool {
	return model.Str(rec.Name) != "" && model.Str(rec.Address) != ""
}
