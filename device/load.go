package device

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bemasher/rtl5800/parse"
)

// Load reads device declarations, one "<hex id> <type>" per line, into the
// registry. Blank lines and lines starting with # are skipped. Any malformed
// or duplicate entry aborts the load.
func Load(r io.Reader, types TypeSet, reg *Registry) error {
	scanner := bufio.NewScanner(r)

	line := 0
	for scanner.Scan() {
		line++

		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) != 2 {
			return errors.Errorf("line %d: expected \"<id> <type>\", got %q", line, text)
		}

		id, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(fields[0]), "0x"), 16, 32)
		if err != nil {
			return errors.Wrapf(err, "line %d: bad device id %q", line, fields[0])
		}

		t, err := types.Lookup(fields[1])
		if err != nil {
			return errors.Wrapf(err, "line %d", line)
		}

		if err := reg.Add(uint32(id), t); err != nil {
			return errors.Wrapf(err, "line %d", line)
		}

		logrus.WithFields(logrus.Fields{
			"id":   parse.FormatID(uint32(id)),
			"type": t,
		}).Info("found device")
	}

	return errors.Wrap(scanner.Err(), "read device file")
}

// LoadFile opens filename and loads it with Load.
func LoadFile(filename string, types TypeSet, reg *Registry) error {
	f, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "open device file")
	}
	defer f.Close()

	return errors.Wrap(Load(f, types, reg), filename)
}
