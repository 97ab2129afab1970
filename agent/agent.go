// Package agent is a conversational assistant over the user's portfolios,
// built on Gemini function calling.
package agent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"google.golang.org/genai"
)

// Agent runs the chat session between the user and a facilitator expert
// delegating to the other experts.
type Agent struct {
	w           io.Writer
	r           *bufio.Reader
	Facilitator *Expert
	Experts     []*Expert
}

// New creates an agent writing to w and reading the user from r.
func New(w io.Writer, r io.Reader, model string, experts ...*Expert) *Agent {
	return &Agent{
		w:           w,
		r:           bufio.NewReader(r),
		Experts:     experts,
		Facilitator: newFacilitator(model, experts...),
	}
}

// Start opens the chat of every expert.
func (a *Agent) Start(ctx context.Context, client *genai.Client) error {
	for _, e := range a.Experts {
		if err := e.Start(ctx, client); err != nil {
			return err
		}
	}
	return a.Facilitator.Start(ctx, client)
}

const prompt = "assist> "

// Run is the REPL: it answers prompts first, then the lines read from the
// user, until "bye" or the end of the input. Chats are started on the first
// question.
func (a *Agent) Run(ctx context.Context, client *genai.Client, prompts ...string) error {
	fmt.Fprintln(a.w, "Welcome to the allocation assistant. Type 'bye' to exit.")

	for {
		fmt.Fprint(a.w, prompt)
		var input string
		if len(prompts) > 0 {
			input, prompts = strings.TrimSpace(prompts[0]), prompts[1:]
			fmt.Fprintln(a.w, input)
		} else {
			line, err := a.r.ReadString('\n')
			if errors.Is(err, io.EOF) && strings.TrimSpace(line) == "" {
				fmt.Fprintln(a.w)
				return nil
			}
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			input = strings.TrimSpace(line)
		}

		switch input {
		case "":
			continue
		case "bye":
			return nil
		}

		if !a.Facilitator.Started() {
			if err := a.Start(ctx, client); err != nil {
				return err
			}
		}
		content, err := a.Facilitator.Ask(ctx, &genai.Part{Text: input})
		if err != nil {
			return err
		}
		fmt.Fprintln(a.w, text(content))
	}
}
