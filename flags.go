// RTL5800 - An rtl-sdr receiver for Honeywell 5800 series sensors operating at 345MHz.
// Copyright (C) 2015 Douglas Hall
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/bemasher/rtl5800/csv"
	"github.com/bemasher/rtl5800/parse"
	"github.com/bemasher/rtl5800/publish"
)

var tuningFilename = flag.String("config", "", "TOML tuning file: decoder constants, dedup and extra device types")
var deviceFilename = flag.String("devices", "", "device file, one \"<hex id> <type>\" per line, types: door, motion or any from -config")

var replayFilename = flag.String("replay", "", "decode raw IQ samples from file instead of rtl_tcp")
var sampleFilename = flag.String("samplefile", os.DevNull, "raw signal dump file, blocks containing messages are written")
var sampleFile *os.File

var timeLimit = flag.Duration("duration", 0, "time to run for, 0 for infinite, ex. 1h5m10s")
var deviceID DeviceIDFilter

var unique = flag.Bool("unique", false, "suppress repeated transmissions of the same status from each device")
var uniqueWindow = flag.Duration("uniquewindow", 0, "window for -unique, overrides the tuning file")

var queueLength = flag.Int("queue", 64, "messages held for a slow publisher before the oldest is dropped")

var encoder publish.Encoder
var format = flag.String("format", "plain", "decoded message output format when not publishing: plain, csv or json")

var natsURL = flag.String("nats", "", "NATS server url, messages are only printed when empty")
var natsPrefix = flag.String("prefix", publish.DefaultPrefix, "subject prefix, messages go to <prefix>.<hex id>")
var natsName = flag.String("clientid", "", "client name used when connecting to NATS")
var natsUser = flag.String("user", "", "NATS user name")
var natsPassword = flag.String("password", "", "NATS password, ignored without -user")
var natsCAFile = flag.String("truststore", "", "PEM file of CAs to verify the NATS server with")
var natsCertFile = flag.String("certfile", "", "client certificate for NATS")
var natsKeyFile = flag.String("keystore", "", "client key for NATS")

var metricsAddr = flag.String("metrics", "", "address to serve prometheus metrics on, ex. :9100")
var logLevel = flag.String("loglevel", "info", "log level: trace, debug, info, warn or error")

var single = flag.Bool("single", false, "one shot execution, if used with -filterid, will wait for exactly one message from each device id")

var version = flag.Bool("version", false, "display build date and commit hash")

func RegisterFlags() {
	deviceID = DeviceIDFilter{make(IDMap)}

	flag.Var(deviceID, "filterid", "display only messages matching an id in a comma-separated list of hex ids.")

	rtl5800Flags := map[string]bool{
		"config":       true,
		"devices":      true,
		"replay":       true,
		"samplefile":   true,
		"duration":     true,
		"filterid":     true,
		"unique":       true,
		"uniquewindow": true,
		"queue":        true,
		"format":       true,
		"nats":         true,
		"prefix":       true,
		"clientid":     true,
		"user":         true,
		"password":     true,
		"truststore":   true,
		"certfile":     true,
		"keystore":     true,
		"metrics":      true,
		"loglevel":     true,
		"single":       true,
		"version":      true,
	}

	printDefaults := func(validFlags map[string]bool, inclusion bool) {
		flag.CommandLine.VisitAll(func(f *flag.Flag) {
			if validFlags[f.Name] != inclusion {
				return
			}

			format := "  -%s=%s: %s\n"
			fmt.Fprintf(os.Stderr, format, f.Name, f.Value, f.Usage)
		})
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		printDefaults(rtl5800Flags, true)

		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "rtltcp specific:")
		printDefaults(rtl5800Flags, false)
	}
}

// EnvOverride sets any flag from HW5800_<NAME> when that variable is set.
func EnvOverride() {
	flag.VisitAll(func(f *flag.Flag) {
		envName := "HW5800_" + strings.ToUpper(f.Name)
		flagValue := os.Getenv(envName)
		if flagValue != "" {
			if err := flag.Set(f.Name, flagValue); err != nil {
				logrus.Warnf("Environment variable %q failed to override flag %q with value %q: %q",
					envName, f.Name, flagValue, err,
				)
			} else {
				logrus.Infof("Environment variable %q overrides flag %q with %q", envName, f.Name, flagValue)
			}
		}
	})
}

func HandleFlags() {
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatal("Invalid log level: ", err)
	}
	logrus.SetLevel(level)

	sampleFile, err = os.Create(*sampleFilename)
	if err != nil {
		logrus.Fatal("Error creating sample file: ", err)
	}

	*format = strings.ToLower(*format)
	switch *format {
	case "plain":
		encoder = PlainEncoder{}
	case "csv":
		encoder = csv.NewEncoder(os.Stdout)
	case "json":
		encoder = json.NewEncoder(os.Stdout)
	default:
		logrus.Fatal("Invalid output format: ", *format)
	}
}

type IDMap map[uint32]bool

func (m IDMap) String() (s string) {
	var values []string
	for k := range m {
		values = append(values, parse.FormatID(k))
	}
	return strings.Join(values, ",")
}

func (m IDMap) Set(value string) error {
	values := strings.Split(value, ",")

	for _, v := range values {
		n, err := strconv.ParseUint(strings.TrimSpace(v), 16, 24)
		if err != nil {
			return err
		}

		m[uint32(n)] = true
	}

	return nil
}

type DeviceIDFilter struct {
	IDMap
}

func (m DeviceIDFilter) Filter(msg parse.Message) bool {
	return m.IDMap[msg.DeviceID()]
}

type PlainEncoder struct{}

func (pe PlainEncoder) Encode(msg interface{}) (err error) {
	_, err = fmt.Println(msg)
	return
}
