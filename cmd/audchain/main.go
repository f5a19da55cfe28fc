// SPDX-License-Identifier: EPL-2.0

// Command audchain decodes an input, renders it through a chain of nodes
// and writes the result as 16-bit WAV.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/ik5/audchain"
	"github.com/ik5/audchain/graph"
	alog "github.com/ik5/audchain/internal/log"
	"github.com/ik5/audchain/source"
)

func main() {
	flag.Parse()

	if flagHelp || flag.NArg() != 1 {
		help()
		if flagHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	logger := alog.GetLogger()
	if flagVerbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if err := run(logger, flag.Arg(0)); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(logger *logrus.Logger, input string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p, err := audchain.New(
		audchain.WithGraph(graph.WithSampleRate(flagRate), graph.WithChannels(flagChannels)),
		audchain.WithSource(
			source.WithPrefixSize(flagPrefix),
			source.WithChunkSize(flagChunk),
			source.WithChunkDelay(flagDelay),
		),
		audchain.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer p.Close()

	p.Subscribe(printEvent)

	if err := buildChain(p, flagGains, flagClip); err != nil {
		return err
	}

	var raw any = input
	if input == "-" {
		raw = io.Reader(os.Stdin)
	}

	if err := p.Load(ctx, raw); err != nil {
		return fmt.Errorf("loading %s: %w", input, err)
	}

	p.Source().SetCurrentTime(flagSeek)
	p.Play()

	seconds := flagSeconds
	if seconds <= 0 {
		seconds = p.Source().Duration() - p.Source().CurrentTime()
	}

	frames := int(seconds * float64(flagRate))
	pcm := p.RenderPCM16(frames, 4096)

	if err := writeWAV(flagOutput, flagRate, flagChannels, pcm); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"file":    flagOutput,
		"frames":  len(pcm) / flagChannels,
		"seconds": p.Context().CurrentTime(),
	}).Info("wrote output")

	return nil
}

// buildChain appends a gain node per entry of gains, then the clipper.
func buildChain(p *audchain.Player, gains []string, withClip bool) error {
	for _, s := range gains {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid gain %q: %w", s, err)
		}

		if _, err := p.Chain().Push(graph.NewGain(p.Context(), v)); err != nil {
			return err
		}
	}

	if withClip {
		if _, err := p.Chain().Push(graph.NewProcessor(p.Context(), clip)); err != nil {
			return err
		}
	}

	return nil
}

func clip(in, out []float32, _ int) {
	for i, x := range in {
		out[i] = min(max(x, -1), 1)
	}
}

var eventColors = map[source.Event]*color.Color{
	source.EventLoadStart:      color.New(color.FgYellow),
	source.EventLoad:           color.New(color.FgGreen),
	source.EventDurationChange: color.New(color.FgCyan),
	source.EventPlay:           color.New(color.FgGreen, color.Bold),
	source.EventPause:          color.New(color.FgYellow, color.Bold),
	source.EventEnd:            color.New(color.FgMagenta),
	source.EventDestruct:       color.New(color.FgRed),
}

func printEvent(ev source.Event, src source.Source) {
	c, ok := eventColors[ev]
	if !ok {
		c = color.New(color.Reset)
	}

	c.Fprintf(os.Stderr, "%-15s", ev)
	fmt.Fprintf(os.Stderr, " t=%.3f d=%.3f\n", src.CurrentTime(), src.Duration())
}
