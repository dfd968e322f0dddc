package main

import (
	"io"

	"github.com/fatih/color"

	"github.com/leaudio/leaudio-go/pkg/stream"
)

// audioPrinter stands in for the audio subsystem and prints what it
// would be asked to do.
type audioPrinter struct {
	out io.Writer
}

var audioColor = color.New(color.FgMagenta)

func (a *audioPrinter) StreamStarted(s stream.Stream) {
	c := s.Codec
	audioColor.Fprintf(a.out, "[AUDIO] start stream %d %s %s: %s %d Hz %s %d samples/frame %d bps sdu=%d\n",
		s.ID, s.Addr, s.Role, c.Preset, c.SampleRate(), c.Mode(), c.FrameSamples(), c.BitRate(), c.PacketSize())
}

func (a *audioPrinter) StreamStopped(s stream.Stream) {
	audioColor.Fprintf(a.out, "[AUDIO] stop stream %d %s\n", s.ID, s.Addr)
}

func (a *audioPrinter) StreamSuspended(s stream.Stream) {
	audioColor.Fprintf(a.out, "[AUDIO] suspend stream %d\n", s.ID)
}

func (a *audioPrinter) StreamResumed(s stream.Stream) {
	audioColor.Fprintf(a.out, "[AUDIO] resume stream %d\n", s.ID)
}

func (a *audioPrinter) MetadataUpdated(s stream.Stream) {
	audioColor.Fprintf(a.out, "[AUDIO] metadata stream %d\n", s.ID)
}
