package cmd

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"github.com/etnz/allocator/renderer"
)

type profilesCmd struct{}

func (*profilesCmd) Name() string     { return "profiles" }
func (*profilesCmd) Synopsis() string { return "list the allocation profiles" }
func (*profilesCmd) Usage() string {
	return `alloc profiles

  Lists the allocation profiles and the share of each category.
`
}

func (*profilesCmd) SetFlags(*flag.FlagSet) {}

func (*profilesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail("opening the database", err)
	}
	defer a.Close()

	profiles, err := a.svc.Profiles(ctx)
	if err != nil {
		return fail("listing profiles", err)
	}
	printMarkdown(renderer.ProfilesMarkdown(profiles))
	return subcommands.ExitSuccess
}
