package chattemplate

import (
	"regexp"
	"time"

	"github.com/ncruces/go-strftime"
	"github.com/nikolalohinski/gonja/v2/exec"
)

var identRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// renderHelpers holds the functions bound into one render's variables.
type renderHelpers struct {
	clock  func() time.Time
	raised *ExecutionError
}

// raiseException aborts the render with its first argument as message.
// The error is kept here as well, since the engine flattens errors to
// text on the way out.
func (h *renderHelpers) raiseException(args *exec.VarArgs) *exec.Value {
	h.raised = &ExecutionError{Message: args.First().String()}
	return exec.AsValue(h.raised)
}

// strftimeNow formats the current time with a C strftime format.
func (h *renderHelpers) strftimeNow(args *exec.VarArgs) *exec.Value {
	var format string
	if err := args.Take(exec.PositionalArgument("format", nil, exec.StringArgument(&format))); err != nil {
		return exec.AsValue(exec.ErrInvalidCall(err))
	}
	return exec.AsValue(strftime.Format(format, h.clock()))
}

func (h *renderHelpers) bind(data map[string]any) {
	data["raise_exception"] = h.raiseException
	data["strftime_now"] = h.strftimeNow
}
