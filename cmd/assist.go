package cmd

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/google/subcommands"
	"google.golang.org/genai"

	"github.com/etnz/allocator/agent"
)

type assistCmd struct{}

func (*assistCmd) Name() string     { return "assist" }
func (*assistCmd) Synopsis() string { return "chat with the allocation assistant" }
func (*assistCmd) Usage() string {
	return `alloc assist [QUESTION...]

  Starts an interactive session with a Gemini assistant that can list, value
  and preview the rebalance of your portfolios. QUESTION is asked first. The
  API key comes from agent.api_key or GEMINI_API_KEY.
`
}

func (*assistCmd) SetFlags(*flag.FlagSet) {}

func (*assistCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail("opening the database", err)
	}
	defer a.Close()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  a.cfg.Agent.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fail("initializing the Gemini client", err)
	}

	model := a.cfg.Agent.Model
	assistant := agent.New(os.Stdout, os.Stdin, model, agent.NewAdvisor(model, a.svc), agent.NewTrader(model))

	var prompts []string
	if f.NArg() > 0 {
		prompts = append(prompts, strings.Join(f.Args(), " "))
	}
	if err := assistant.Run(ctx, client, prompts...); err != nil {
		return fail("running the assistant", err)
	}
	return subcommands.ExitSuccess
}
