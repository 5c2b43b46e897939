package midiin

import (
	"fmt"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// NoteEvent is one pad strike: a note-on with velocity > 0 from any
// channel, stamped when the driver callback delivered it.
type NoteEvent struct {
	Note     uint8
	Velocity uint8
	When     time.Time
}

// Input listens to one MIDI input port for note-on events. Everything
// that is not a note-on with positive velocity is dropped at the
// driver callback.
type Input struct {
	id       string
	stopFunc func()
	events   chan NoteEvent
}

// Open connects to the first input port whose name contains name
// (case-insensitive), or the first port of all when name is empty.
func Open(name string) (*Input, error) {
	port, err := findPort(name)
	if err != nil {
		return nil, err
	}

	in := &Input{
		id:     port.String(),
		events: make(chan NoteEvent, 32),
	}

	stop, err := gomidi.ListenTo(port, func(msg gomidi.Message, timestampms int32) {
		var channel, note, velocity uint8
		if msg.GetNoteOn(&channel, &note, &velocity) && velocity > 0 {
			select {
			case in.events <- NoteEvent{Note: note, Velocity: velocity, When: time.Now()}:
			default:
				// Drop if the consumer lags; stale hits are useless.
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("open input %q: %w", in.id, err)
	}
	in.stopFunc = stop
	return in, nil
}

func findPort(name string) (drivers.In, error) {
	ports := gomidi.GetInPorts()
	if len(ports) == 0 {
		return nil, fmt.Errorf("no MIDI input ports")
	}
	if name == "" {
		return ports[0], nil
	}
	want := strings.ToLower(name)
	for i, p := range ports {
		if strings.Contains(strings.ToLower(p.String()), want) {
			return ports[i], nil
		}
	}
	return nil, fmt.Errorf("no MIDI input port matching %q", name)
}

// ID is the connected port's name.
func (in *Input) ID() string {
	return in.id
}

// Events delivers pad strikes.
func (in *Input) Events() <-chan NoteEvent {
	return in.events
}

func (in *Input) Close() error {
	if in.stopFunc != nil {
		in.stopFunc()
	}
	close(in.events)
	return nil
}

// Ports lists available MIDI input port names.
func Ports() []string {
	var names []string
	for _, p := range gomidi.GetInPorts() {
		names = append(names, p.String())
	}
	return names
}

// OutPorts lists available MIDI output port names.
func OutPorts() []string {
	var names []string
	for _, p := range gomidi.GetOutPorts() {
		names = append(names, p.String())
	}
	return names
}
