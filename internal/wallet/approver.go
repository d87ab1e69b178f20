package wallet

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Approver decides whether a signature request may proceed.
// It returns nil to approve and ErrRejected to decline.
type Approver interface {
	Approve(ctx context.Context, a Approval) error
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(ctx context.Context, a Approval) error

// Approve calls f.
func (f ApproverFunc) Approve(ctx context.Context, a Approval) error {
	return f(ctx, a)
}

// AutoApprove approves every request.
var AutoApprove Approver = ApproverFunc(func(context.Context, Approval) error { return nil })

// RejectAll declines every request.
var RejectAll Approver = ApproverFunc(func(context.Context, Approval) error { return ErrRejected })

// PromptApprover asks on Out and reads a y/N answer from In.
// One goroutine reads In for the lifetime of the approver, so a prompt
// abandoned through ctx leaves the next answer to the next prompt.
type PromptApprover struct {
	In  io.Reader
	Out io.Writer

	once  sync.Once
	lines chan promptLine
}

type promptLine struct {
	text string
	err  error
}

func (p *PromptApprover) start() {
	p.once.Do(func() {
		p.lines = make(chan promptLine)
		go p.readLines()
	})
}

func (p *PromptApprover) readLines() {
	defer close(p.lines)
	r := bufio.NewReader(p.In)
	for {
		line, err := r.ReadString('\n')
		p.lines <- promptLine{text: line, err: err}
		if err != nil {
			return
		}
	}
}

// Approve prints the request and waits for an answer or for ctx to end.
func (p *PromptApprover) Approve(ctx context.Context, a Approval) error {
	p.start()

	fmt.Fprintf(p.Out, "%s\n", a.Summary)
	for i, name := range a.Instructions {
		fmt.Fprintf(p.Out, "  %d. %s\n", i+1, name)
	}
	fmt.Fprint(p.Out, "Sign and send? [y/N]: ")

	var line promptLine
	select {
	case <-ctx.Done():
		return ctx.Err()
	case l, ok := <-p.lines:
		if !ok {
			return fmt.Errorf("%w: input closed", ErrRejected)
		}
		line = l
	}
	if line.err != nil && line.text == "" {
		return fmt.Errorf("%w: %v", ErrRejected, line.err)
	}

	switch strings.ToLower(strings.TrimSpace(line.text)) {
	case "y", "yes":
		return nil
	default:
		return ErrRejected
	}
}
