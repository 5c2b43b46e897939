package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"drumpractice/midiin"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	port := ""
	if len(os.Args) > 2 {
		port = os.Args[2]
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "monitor":
		monitor(port)
	case "watch":
		watch(port)
	default:
		usage()
	}
}

func usage() {
	fmt.Println("Pad Input Probe")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list             - List MIDI input/output ports")
	fmt.Println("  monitor [port]   - Print pad strikes with inter-hit intervals")
	fmt.Println("  watch [port]     - Watch for pad connect/disconnect")
	fmt.Println("")
	fmt.Println("[port] is a case-insensitive name substring; omit for the first port.")
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	for i, name := range midiin.Ports() {
		fmt.Printf("  %d: %s\n", i, name)
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	for i, name := range midiin.OutPorts() {
		fmt.Printf("  %d: %s\n", i, name)
	}
}

// monitor prints every note-on with its velocity and the interval since
// the previous strike. Useful for spotting double-triggering pads and
// for eyeballing a setup's input latency before tuning latencyOffsetMs.
func monitor(port string) {
	in, err := midiin.Open(port)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer in.Close()

	fmt.Printf("Listening on %s. Strike the pad; Ctrl+C to exit.\n", in.ID())
	printHits(in)
}

func printHits(in *midiin.Input) {
	var last time.Time
	for ev := range in.Events() {
		if last.IsZero() {
			fmt.Printf("[%s] note %3d vel %3d\n",
				ev.When.Format("15:04:05.000"), ev.Note, ev.Velocity)
		} else {
			interval := ev.When.Sub(last)
			mark := ""
			if interval < 50*time.Millisecond {
				mark = "  <- double trigger?"
			}
			fmt.Printf("[%s] note %3d vel %3d  +%dms%s\n",
				ev.When.Format("15:04:05.000"), ev.Note, ev.Velocity,
				interval.Milliseconds(), mark)
		}
		last = ev.When
	}
}

// watch exercises the hot-plug path: connect and disconnect the pad and
// confirm the watcher picks it up each time.
func watch(port string) {
	fmt.Println("Watching for pad changes. Connect/disconnect to test. Ctrl+C to exit.")

	w := midiin.NewWatcher(port)
	go w.Run(context.Background())

	for ev := range w.Events() {
		switch ev.Type {
		case midiin.InputConnected:
			fmt.Printf("[%s] connected: %s\n", time.Now().Format("15:04:05"), ev.ID)
			go printHits(ev.Input)
		case midiin.InputDisconnected:
			fmt.Printf("[%s] disconnected: %s\n", time.Now().Format("15:04:05"), ev.ID)
		}
	}
}
