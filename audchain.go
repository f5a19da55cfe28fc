// SPDX-License-Identifier: EPL-2.0

package audchain

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ik5/audchain/chain"
	"github.com/ik5/audchain/graph"
	"github.com/ik5/audchain/source"
)

// Player wires a source router, an input gain and a node chain into one
// graph context.
type Player struct {
	ctx    *graph.Context
	input  *graph.Gain
	chain  *chain.Chain
	router *source.Router
	log    logrus.FieldLogger
}

// New builds the signal path source → input → chain → destination.
func New(opts ...Option) (*Player, error) {
	o := newOptions(opts)

	ctx := graph.NewContext(o.graph...)
	input := graph.NewGain(ctx, 1)

	ch, err := chain.New(ctx, input, ctx.Destination(), chain.WithLogger(o.log))
	if err != nil {
		return nil, fmt.Errorf("creating chain: %w", err)
	}

	router, err := source.NewRouter(input, o.source...)
	if err != nil {
		return nil, fmt.Errorf("creating router: %w", err)
	}

	o.log.WithFields(logrus.Fields{
		"rate":     ctx.SampleRate(),
		"channels": ctx.Channels(),
	}).Debug("player ready")

	return &Player{
		ctx:    ctx,
		input:  input,
		chain:  ch,
		router: router,
		log:    o.log,
	}, nil
}

// Context returns the graph context; nodes for the chain are created on it.
func (p *Player) Context() *graph.Context { return p.ctx }

// Chain returns the node chain between the input gain and the destination.
func (p *Player) Chain() *chain.Chain { return p.chain }

// Source returns the router feeding the input gain.
func (p *Player) Source() *source.Router { return p.router }

// Input returns the gain node every source feeds.
func (p *Player) Input() *graph.Gain { return p.input }

func (p *Player) InputVolume() float64 { return p.input.Gain() }

func (p *Player) SetInputVolume(v float64) { p.input.SetGain(v) }

// Load hands raw to the router. See source.Router.SetSource.
func (p *Player) Load(ctx context.Context, raw any) error {
	return p.router.SetSource(ctx, raw)
}

func (p *Player) Play()        { p.router.Play() }
func (p *Player) Pause()       { p.router.Pause() }
func (p *Player) Paused() bool { return p.router.Paused() }

// Subscribe registers fn for the events of whatever source is active.
func (p *Player) Subscribe(fn source.Listener) func() {
	return p.router.Subscribe(fn)
}

// Render produces the next len(dst)/Channels() frames of output.
func (p *Player) Render(dst []float32) int {
	return p.ctx.Render(dst)
}

// Close tears down the source, empties the chain and closes the context.
func (p *Player) Close() error {
	p.router.Destroy()

	if err := p.chain.Close(); err != nil {
		return fmt.Errorf("closing chain: %w", err)
	}

	return p.ctx.Close()
}
