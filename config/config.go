// Package config loads the TOML tuning file: decoder constants, duplicate
// suppression and additional device type tables.
package config

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/bemasher/rtl5800/decode"
	"github.com/bemasher/rtl5800/device"
)

// Duration is a time.Duration written as a string such as "2s" in TOML.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

type Registry struct {
	Dedup       bool     `toml:"dedup"`
	DedupWindow Duration `toml:"dedup_window"`
}

// File is the layout of the tuning file. Everything is optional; missing
// keys keep their defaults.
type File struct {
	Decoder     decode.Config `toml:"decoder"`
	Registry    Registry      `toml:"registry"`
	DeviceTypes []device.Type `toml:"device_type"`
}

func Default() File {
	return File{
		Decoder: decode.NewConfig(),
		Registry: Registry{
			Dedup:       false,
			DedupWindow: Duration(2 * time.Second),
		},
	}
}

// Decode reads a tuning file over the defaults and validates the result.
func Decode(r io.Reader) (f File, err error) {
	f = Default()

	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err = dec.Decode(&f); err != nil {
		return f, errors.Wrap(err, "decode tuning file")
	}

	if err = f.Decoder.Validate(); err != nil {
		return f, errors.Wrap(err, "decoder")
	}

	if f.Registry.DedupWindow < 0 {
		return f, errors.Errorf("registry: negative dedup window %s", time.Duration(f.Registry.DedupWindow))
	}

	if _, err = f.Types(); err != nil {
		return f, err
	}

	return f, nil
}

func Load(filename string) (File, error) {
	if filename == "" {
		return Default(), nil
	}

	buf, err := os.ReadFile(filename)
	if err != nil {
		return File{}, errors.Wrap(err, "read tuning file")
	}

	f, err := Decode(bytes.NewReader(buf))
	return f, errors.Wrap(err, filename)
}

// Types returns the built-in device types extended or overridden by the
// file's tables.
func (f File) Types() (device.TypeSet, error) {
	types := device.NewTypeSet()
	for _, t := range f.DeviceTypes {
		if err := types.Add(t); err != nil {
			return nil, errors.Wrap(err, "device_type")
		}
	}
	return types, nil
}

func (f File) RegistryOptions() device.Options {
	return device.Options{
		Dedup:  f.Registry.Dedup,
		Window: time.Duration(f.Registry.DedupWindow),
	}
}
