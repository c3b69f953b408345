package chattemplate

import (
	"fmt"
	"strings"

	"github.com/nikolalohinski/gonja/v2/exec"
	"github.com/nikolalohinski/gonja/v2/nodes"
	"github.com/nikolalohinski/gonja/v2/parser"
	"github.com/nikolalohinski/gonja/v2/tokens"
)

// trackerKey is the reserved context variable holding the active tracker.
const trackerKey = "__generation_tracker__"

// generationBlock is a {% generation %}...{% endgeneration %} block. It
// renders its body and hands it to the render's tracker, if any.
type generationBlock struct {
	position *tokens.Token
	body     *nodes.Wrapper
}

func (g *generationBlock) Position() *tokens.Token { return g.position }

func (g *generationBlock) String() string {
	return fmt.Sprintf("GenerationBlock(Line=%d Col=%d)", g.position.Line, g.position.Col)
}

func (g *generationBlock) Execute(r *exec.Renderer, _ *nodes.ControlStructureBlock) error {
	v, _ := r.Environment.Context.Get(trackerKey)
	tracker, _ := v.(*Tracker)
	if tracker == nil {
		return r.ExecuteWrapper(g.body)
	}

	var body strings.Builder
	sub := r.Inherit()
	sub.Output = &body
	if err := sub.ExecuteWrapper(g.body); err != nil {
		return err
	}
	return tracker.Observe(body.String(), r.Output)
}

func parseGeneration(p *parser.Parser, args *parser.Parser) (nodes.ControlStructure, error) {
	block := &generationBlock{position: p.Current()}
	if !args.End() {
		return nil, args.Error("generation takes no arguments", args.Current())
	}

	body, endArgs, err := p.WrapUntil("endgeneration")
	if err != nil {
		return nil, err
	}
	if !endArgs.End() {
		return nil, endArgs.Error("endgeneration takes no arguments", endArgs.Current())
	}
	block.body = body
	return block, nil
}
