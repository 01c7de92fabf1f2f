package device

import (
	"time"

	"golang.org/x/xerrors"
)

const MaxID = 1<<24 - 1

// Record is the registry's view of one sensor.
type Record struct {
	ID   uint32
	Type Type

	LastStatus uint8
	LastSeen   time.Time
	Seen       bool
}

// Options controls duplicate suppression. Sensors repeat each transmission
// several times per event; with Dedup set, a status byte identical to the
// previous one from the same device within Window is suppressed.
type Options struct {
	Dedup  bool
	Window time.Duration
}

// Registry maps device ids to types and remembers the last status seen from
// each. It is owned by the decode goroutine once loading has finished and
// does no locking.
type Registry struct {
	opts    Options
	records map[uint32]*Record
}

func NewRegistry(opts Options) *Registry {
	return &Registry{
		opts:    opts,
		records: make(map[uint32]*Record),
	}
}

// Add declares a device's type. Declaring an id twice is an error.
func (r *Registry) Add(id uint32, t Type) error {
	if id > MaxID {
		return xerrors.Errorf("device id %X wider than 24 bits", id)
	}
	if _, dup := r.records[id]; dup {
		return xerrors.Errorf("duplicate device id %06X", id)
	}

	r.records[id] = &Record{ID: id, Type: t}
	return nil
}

// Lookup returns the device's type, Unknown if it was never declared.
func (r *Registry) Lookup(id uint32) Type {
	if rec, ok := r.records[id]; ok {
		return rec.Type
	}
	return Unknown
}

// Record notes a valid frame from the device and reports whether it should
// be emitted.
func (r *Registry) Record(id uint32, status uint8, ts time.Time) (emit bool) {
	rec, ok := r.records[id]
	if !ok {
		rec = &Record{ID: id, Type: Unknown}
		r.records[id] = rec
	}

	emit = true
	if r.opts.Dedup && rec.Seen && rec.LastStatus == status && ts.Sub(rec.LastSeen) < r.opts.Window {
		emit = false
	}

	rec.LastStatus = status
	rec.LastSeen = ts
	rec.Seen = true

	return emit
}

func (r *Registry) Get(id uint32) (Record, bool) {
	rec, ok := r.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

func (r *Registry) Len() int {
	return len(r.records)
}

func (r *Registry) Options() Options {
	return r.opts
}
