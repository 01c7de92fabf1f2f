package decode

import "fmt"

// A Pulse is a run of bins sharing the same carrier state.
type Pulse struct {
	Level    bool
	Duration int
}

func (p Pulse) String() string {
	if p.Level {
		return fmt.Sprintf("H%d", p.Duration)
	}
	return fmt.Sprintf("L%d", p.Duration)
}

// PulseTimer measures runs of carrier state. The most recently completed run
// is held back until the run following it reaches MinPulse bins. A shorter
// run is a glitch: it and the held run merge into the run that follows.
type PulseTimer struct {
	min int

	cur  Pulse
	last Pulse
	held bool
}

func NewPulseTimer(cfg Config) *PulseTimer {
	return &PulseTimer{min: cfg.MinPulse}
}

// Feed consumes one carrier decision and returns a pulse once one is final.
func (pt *PulseTimer) Feed(level bool) (p Pulse, ok bool) {
	if level == pt.cur.Level {
		pt.cur.Duration++
	} else if pt.held && pt.cur.Duration < pt.min {
		pt.cur = Pulse{level, pt.last.Duration + pt.cur.Duration + 1}
		pt.held = false
		return
	} else {
		if pt.cur.Duration > 0 {
			pt.last, pt.held = pt.cur, true
		}
		pt.cur = Pulse{level, 1}
	}

	if pt.held && pt.cur.Duration >= pt.min {
		pt.held = false
		return pt.last, true
	}

	return
}

// Flush returns any pulses still pending and resets the timer.
func (pt *PulseTimer) Flush() (pulses []Pulse) {
	if pt.held {
		pulses = append(pulses, pt.last)
	}
	if pt.cur.Duration > 0 {
		pulses = append(pulses, pt.cur)
	}

	*pt = PulseTimer{min: pt.min}

	return
}
