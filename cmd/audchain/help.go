// SPDX-License-Identifier: EPL-2.0

package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
)

var (
	flagRate     int
	flagChannels int
	flagGains    []string
	flagClip     bool
	flagSeek     float64
	flagSeconds  float64
	flagOutput   string
	flagPrefix   int
	flagChunk    int
	flagDelay    time.Duration
	flagVerbose  bool
	flagHelp     bool
)

func init() {
	flag.IntVarP(&flagRate, "rate", "r", 44100, "Engine sample rate, in Hz")
	flag.IntVarP(&flagChannels, "channels", "c", 2, "Engine channel count")
	flag.StringArrayVarP(&flagGains, "gain", "g", nil, "Append a gain node to the chain (repeatable)")
	flag.BoolVarP(&flagClip, "clip", "", false, "Append a hard clipper to the chain")
	flag.Float64VarP(&flagSeek, "seek", "s", 0, "Start position, in seconds")
	flag.Float64VarP(&flagSeconds, "seconds", "t", 0, "Seconds to render (default: until the end)")
	flag.StringVarP(&flagOutput, "out", "o", "out.wav", "Output WAV file")
	flag.IntVarP(&flagPrefix, "prefix", "p", 100000, "Bytes decoded before the full buffer")
	flag.IntVarP(&flagChunk, "chunk", "", 32*1024, "Read size for streamed input, in bytes")
	flag.DurationVarP(&flagDelay, "chunk-delay", "", 0, "Pause between streamed chunks")
	flag.BoolVarP(&flagVerbose, "verbose", "v", false, "Log debug output")

	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
}

const helpString = `Render audio through an editable node chain into a WAV file

Usage: audchain [OPTION]... INPUT

INPUT is a file path, a file:// or http(s):// URL, or - for stdin.

Engine:
  -r, --rate=NUM         Engine sample rate, in Hz (default: 44100)
  -c, --channels=NUM     Engine channel count (default: 2)

Chain:
  -g, --gain=NUM         Append a gain node; may be given several times
      --clip             Append a hard clipper after the gains

Playback:
  -s, --seek=SEC         Start position, in seconds (default: 0)
  -t, --seconds=SEC      Seconds to render (default: until the end)
  -p, --prefix=NUM       Bytes decoded before the full buffer (default: 100000)
      --chunk=NUM        Read size for streamed input (default: 32768)
      --chunk-delay=DUR  Pause between streamed chunks (default: 0s)

Output:
  -o, --out=FILE         Output WAV file (default: out.wav)

Miscellaneous:
  -v, --verbose          Log debug output
  -h, --help             Prints this help message and exits`

func help() {
	color.New(color.FgCyan, color.Bold).Println("audchain")
	fmt.Println(helpString)
}
