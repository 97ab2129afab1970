package cmd

import (
	"github.com/google/subcommands"
)

// groups lists the subcommands by help group.
var groups = []struct {
	name     string
	commands []subcommands.Command
}{
	{"allocation", []subcommands.Command{&profilesCmd{}, &planCmd{}, &createCmd{}, &contributeCmd{}, &rebalanceCmd{}}},
	{"portfolios", []subcommands.Command{&showCmd{}, &historyCmd{}, &exportCmd{}, &duplicateCmd{}, &deleteCmd{}, &notesCmd{}}},
	{"planning", []subcommands.Command{&dividendCmd{}, &goalCmd{}, &consolidatedCmd{}}},
	{"quotes", []subcommands.Command{&quoteCmd{}, &pricesCmd{}, &updateQuotesCmd{}}},
	{"", []subcommands.Command{&serveCmd{}, &assistCmd{}}},
}

// Register the subcommands.
func Register(c *subcommands.Commander) {
	for _, g := range groups {
		for _, cmd := range g.commands {
			c.Register(cmd, g.name)
		}
	}
}

// IsCommand reports whether name is a built-in subcommand.
func IsCommand(name string) bool {
	switch name {
	case "help", "flags", "commands":
		return true
	}
	for _, g := range groups {
		for _, c := range g.commands {
			if c.Name() == name {
				return true
			}
		}
	}
	return false
}
