package config

import (
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/bemasher/rtl5800/decode"
)

const tuning = `
[decoder]
decimation = 10
short_pulse = 19
long_pulse = 38
threshold_factor = 6.5
min_pulse = 2

[registry]
dedup = true
dedup_window = "1500ms"

[[device_type]]
name = "door"

  [[device_type.field]]
  name = "open"
  mask = 0x01

  [[device_type.field]]
  name = "tog"
  mask = 0x80

[[device_type]]
name = "smoke"

  [[device_type.field]]
  name = "alarm"
  mask = 0x80
`

func TestDecode(t *testing.T) {
	f, err := Decode(strings.NewReader(tuning))
	require.NoError(t, err)

	expected := decode.NewConfig()
	expected.Decimation = 10
	expected.ShortPulse = 19
	expected.LongPulse = 38
	expected.ThresholdFactor = 6.5
	expected.MinPulse = 2
	assert.Equal(t, expected, f.Decoder)

	opts := f.RegistryOptions()
	assert.True(t, opts.Dedup)
	assert.Equal(t, 1500*time.Millisecond, opts.Window)

	types, err := f.Types()
	require.NoError(t, err)

	door, err := types.Lookup("door")
	require.NoError(t, err)
	assert.Equal(t, "y", door.Fields[0].Value(0x81))
	assert.Equal(t, "y", door.Fields[1].Value(0x81))

	smoke, err := types.Lookup("smoke")
	require.NoError(t, err)
	assert.Equal(t, "n", smoke.Fields[0].Value(0x00))

	_, err = types.Lookup("motion")
	assert.NoError(t, err)
}

func TestDefault(t *testing.T) {
	f, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, decode.NewConfig(), f.Decoder)
	assert.False(t, f.RegistryOptions().Dedup)
	assert.Equal(t, 2*time.Second, f.RegistryOptions().Window)
}

func TestDecodeErrors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{"unknown key", "[decoder]\nbogus = 1\n"},
		{"bad duration", "[registry]\ndedup_window = \"soon\"\n"},
		{"negative window", "[registry]\ndedup_window = \"-1s\"\n"},
		{"reserved field", "[[device_type]]\nname = \"x\"\n[[device_type.field]]\nname = \"device_id\"\nmask = 1\n"},
		{"invalid decoder", "[decoder]\ndecimation = 0\n"},
		{"rate mismatch", "[decoder]\nsample_rate = 2400000\n"},
		{"field label", "[[device_type]]\nname = \"x\"\n[[device_type.field]]\nname = \"a\"\nmask = 1\n\"true\" = \"ALARM\"\n"},
		{"unknown redefined", "[[device_type]]\nname = \"unknown\"\n[[device_type.field]]\nname = \"a\"\nmask = 1\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tc.input))
			assert.Error(t, err)
		})
	}
}

func TestDecodeOverlap(t *testing.T) {
	_, err := Decode(strings.NewReader("[decoder]\ntolerance = 0.4\n"))
	require.Error(t, err)
	assert.True(t, xerrors.Is(errors.Cause(err), decode.ErrOverlap), "%+v", err)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("does-not-exist.toml")
	assert.Error(t, err)
}
