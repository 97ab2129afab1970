// Command alloc plans, creates and rebalances investment portfolios.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"github.com/etnz/allocator/cmd"
)

func main() {
	cmd.Completion().Complete("alloc")

	commander := subcommands.NewCommander(flag.CommandLine, "alloc")
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	flag.Parse()

	if sub := flag.Arg(0); sub != "" && !cmd.IsCommand(sub) {
		if found, code := cmd.RunExtension(sub, flag.Args()[1:]); found {
			os.Exit(code)
		}
	}
	os.Exit(int(commander.Execute(context.Background())))
}
