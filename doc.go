/*
RTL5800 is an rtl-sdr receiver for Honeywell 5800 series wireless sensors
operating at 345MHz.

Samples are read from an rtl_tcp server, or a file with -replay, and run
through an on-off keying decoder. Frames carry a 24-bit device id, a status
byte and a 16-bit checksum. Frames passing the checksum are interpreted with
the device's type and printed, or published to NATS when -nats is given.

Command-line Flags:

	-config=""

TOML tuning file. Overrides decoder constants, duplicate suppression and
adds or replaces device types:

	[decoder]
	decimation = 19
	threshold_factor = 8.0
	min_pulse = 3

	[registry]
	dedup = true
	dedup_window = "2s"

	[[device_type]]
	name = "door"

	  [[device_type.field]]
	  name = "open"
	  mask = 0x20

Pulse lengths are counted in bins of decimation samples and must match the
190us/380us on-air pulse widths at the sample rate. Changing -samplerate or
sample_rate requires a matching decimation, for example 46 at 2.4M.

	-devices=""

Device file, one "<hex id> <type>" per line. Blank lines and lines starting
with # are ignored. Devices not listed decode as type unknown and carry only
their id and raw status byte.

	-duration=0

Sets time to receive for, 0 for infinite.

	-filterid=

Display only messages from the given comma-separated list of hex ids.

	-format="plain"

Output format when not publishing: plain, csv or json. JSON lines match the
published payload:

	{"device_id":"12AB34","b":"81","open":"y","tog":"y"}

	-nats=""

NATS server url. Messages are published to <prefix>.<hex id>, see -prefix,
-clientid, -user, -password, -truststore, -certfile and -keystore.

	-metrics=""

Address to serve Prometheus metrics on.

	-single=false

Exit after the first message. With -filterid, wait for one message from each
listed id.

	-unique=false

Suppress repeated transmissions of an unchanged status within -uniquewindow.

Every flag may also be set from the environment as HW5800_<FLAG>, for
example HW5800_NATS=nats://localhost:4222.

Flags specific to the rtl_tcp connection, such as -server, -centerfreq and
-samplerate, are listed under "rtltcp specific" in -help.
*/
package main
