// Package device interprets 5800 series status bytes and tracks the sensors
// seen during a run.
package device

import (
	"strings"

	"golang.org/x/xerrors"
)

// Labels carried by every named field in the payload.
const (
	Yes = "y"
	No  = "n"
)

// A Field names one condition encoded in the status byte.
type Field struct {
	Name string `toml:"name"`
	Mask uint8  `toml:"mask"`
}

// Value returns the field's label for the given status byte.
func (f Field) Value(status uint8) string {
	if status&f.Mask != 0 {
		return Yes
	}
	return No
}

// A Type is a table of fields interpreting a sensor's status byte.
type Type struct {
	Name   string  `toml:"name"`
	Fields []Field `toml:"field"`
}

func (t Type) String() string {
	return t.Name
}

var (
	Unknown = Type{Name: "unknown"}
	Door    = Type{Name: "door", Fields: []Field{{"open", 0x20}, {"tog", 0x40}}}
	Motion  = Type{Name: "motion", Fields: []Field{{"motion", 0x80}, {"tog", 0x40}}}
)

// Names reserved by the payload for the id and raw status byte.
var reserved = map[string]bool{"device_id": true, "b": true}

// Validate checks a type table for problems that would corrupt payloads.
func (t Type) Validate() error {
	if t.Name == "" {
		return xerrors.New("device type has no name")
	}

	seen := map[string]bool{}
	for _, f := range t.Fields {
		switch {
		case f.Name == "":
			return xerrors.Errorf("device type %q: field has no name", t.Name)
		case reserved[f.Name]:
			return xerrors.Errorf("device type %q: field name %q is reserved", t.Name, f.Name)
		case seen[f.Name]:
			return xerrors.Errorf("device type %q: duplicate field %q", t.Name, f.Name)
		case f.Mask == 0:
			return xerrors.Errorf("device type %q: field %q has an empty mask", t.Name, f.Name)
		}
		seen[f.Name] = true
	}

	return nil
}

// TypeSet holds the known device types keyed by lower-case name.
type TypeSet map[string]Type

// NewTypeSet returns the built-in types.
func NewTypeSet() TypeSet {
	ts := TypeSet{}
	for _, t := range []Type{Unknown, Door, Motion} {
		ts[t.Name] = t
	}
	return ts
}

// Add registers t, replacing any type of the same name. Unknown is fixed:
// unmapped devices carry only their raw status byte.
func (ts TypeSet) Add(t Type) error {
	t.Name = strings.ToLower(t.Name)
	if t.Name == Unknown.Name {
		return xerrors.Errorf("device type %q cannot be redefined", t.Name)
	}
	if err := t.Validate(); err != nil {
		return err
	}

	t.Fields = append([]Field(nil), t.Fields...)

	ts[t.Name] = t
	return nil
}

func (ts TypeSet) Lookup(name string) (Type, error) {
	if t, ok := ts[strings.ToLower(name)]; ok {
		return t, nil
	}
	return Unknown, xerrors.Errorf("unknown device type: %q", name)
}
