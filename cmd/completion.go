package cmd

import (
	"flag"
	"io"

	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"

	"github.com/etnz/allocator"
)

// Completion returns the shell completion of the alloc command line, built
// from the flags the subcommands declare.
func Completion() *complete.Command {
	root := &complete.Command{
		Sub: map[string]*complete.Command{},
		Flags: map[string]complete.Predictor{
			"config": predict.Files("*.toml"),
			"db":     predict.Files("*.db"),
			"v":      predict.Nothing,
		},
	}
	for _, g := range groups {
		for _, c := range g.commands {
			fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
			fs.SetOutput(io.Discard)
			c.SetFlags(fs)

			sub := &complete.Command{Flags: map[string]complete.Predictor{}}
			fs.VisitAll(func(f *flag.Flag) {
				sub.Flags[f.Name] = flagPredictor(f)
			})
			root.Sub[c.Name()] = sub
		}
	}
	return root
}

func flagPredictor(f *flag.Flag) complete.Predictor {
	switch f.Name {
	case "profile":
		ids := make(predict.Set, 0, len(allocator.ReferenceProfiles))
		for _, p := range allocator.ReferenceProfiles {
			ids = append(ids, p.ID)
		}
		return ids
	case "strategy":
		return predict.Set{allocator.CategoryBalanceName, allocator.EqualSplitName}
	case "o":
		return predict.Files("*.jsonl")
	}
	if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
		return predict.Nothing
	}
	return predict.Something
}
