package device

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bemasher/rtl5800/gen"
	"github.com/bemasher/rtl5800/parse"
)

func frame(t *testing.T, id uint32, status uint8) parse.Frame {
	t.Helper()

	f, err := parse.NewFrameFromBytes(gen.NewFrame(id, status))
	require.NoError(t, err)
	return f
}

func TestDecodeJSON(t *testing.T) {
	ts := NewTypeSet()
	require.NoError(t, ts.Add(Type{
		Name:   "door",
		Fields: []Field{{Name: "open", Mask: 0x01}, {Name: "tog", Mask: 0x80}},
	}))

	door, err := ts.Lookup("DOOR")
	require.NoError(t, err)

	msg := Decode(frame(t, 0x12AB34, 0x81), door)

	buf, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Equal(t, `{"device_id":"12AB34","b":"81","open":"y","tog":"y"}`, string(buf))
}

func TestDecodeBuiltinTypes(t *testing.T) {
	testCases := []struct {
		name     string
		typ      Type
		status   uint8
		expected []Value
	}{
		{"door closed", Door, 0x81, []Value{{"open", "n"}, {"tog", "n"}}},
		{"door open", Door, 0x60, []Value{{"open", "y"}, {"tog", "y"}}},
		{"motion", Motion, 0x80, []Value{{"motion", "y"}, {"tog", "n"}}},
		{"unknown", Unknown, 0xFF, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg := Decode(frame(t, 0x000001, tc.status), tc.typ)
			if diff := cmp.Diff(tc.expected, msg.Fields); diff != "" {
				t.Fatalf("fields mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUnknownPayload(t *testing.T) {
	msg := Decode(frame(t, 0xABCDEF, 0x05), Unknown)

	buf, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Equal(t, `{"device_id":"ABCDEF","b":"05"}`, string(buf))
	assert.Equal(t, "{ID:ABCDEF B:05}", msg.String())
	assert.Equal(t, []string{"ABCDEF", "05"}, msg.Record())
}

func TestMessageField(t *testing.T) {
	msg := Decode(frame(t, 0x000002, 0x20), Door)

	v, ok := msg.Field("open")
	assert.True(t, ok)
	assert.Equal(t, "y", v)

	_, ok = msg.Field("motion")
	assert.False(t, ok)
}

func TestTypeValidate(t *testing.T) {
	testCases := []struct {
		name string
		typ  Type
	}{
		{"no name", Type{Fields: []Field{{Name: "open", Mask: 1}}}},
		{"no field name", Type{Name: "x", Fields: []Field{{Mask: 1}}}},
		{"reserved", Type{Name: "x", Fields: []Field{{Name: "b", Mask: 1}}}},
		{"duplicate", Type{Name: "x", Fields: []Field{{Name: "a", Mask: 1}, {Name: "a", Mask: 2}}}},
		{"empty mask", Type{Name: "x", Fields: []Field{{Name: "a"}}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, NewTypeSet().Add(tc.typ))
		})
	}
}

func TestTypeSetAdd(t *testing.T) {
	ts := NewTypeSet()
	require.NoError(t, ts.Add(Type{
		Name:   "Smoke",
		Fields: []Field{{Name: "alarm", Mask: 0x80}},
	}))

	smoke, err := ts.Lookup("smoke")
	require.NoError(t, err)
	assert.Equal(t, Yes, smoke.Fields[0].Value(0x80))
	assert.Equal(t, No, smoke.Fields[0].Value(0x00))

	_, err = ts.Lookup("glassbreak")
	assert.Error(t, err)
}

func TestTypeSetUnknownFixed(t *testing.T) {
	ts := NewTypeSet()
	assert.Error(t, ts.Add(Type{
		Name:   "Unknown",
		Fields: []Field{{Name: "alarm", Mask: 0x80}},
	}))

	// Declared and unmapped devices decode the same way.
	declared, err := ts.Lookup("unknown")
	require.NoError(t, err)

	reg := NewRegistry(Options{})
	require.NoError(t, reg.Add(0x000001, declared))

	f := frame(t, 0x000001, 0x80)
	g := frame(t, 0x000002, 0x80)
	assert.Empty(t, Decode(f, reg.Lookup(f.DeviceID())).Fields)
	assert.Empty(t, Decode(g, reg.Lookup(g.DeviceID())).Fields)
}
