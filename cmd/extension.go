package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

// Environment passed to extensions, so that they open the same database.
const (
	EnvConfigFile = "ALLOC_CONFIG"
	EnvDatabase   = "ALLOC_DB"
	EnvVerbose    = "ALLOC_VERBOSE"
)

// RunExtension attempts to find and execute an external alloc-<subcommand>
// binary. It returns (true, exitCode) if an extension was found and
// executed, and (false, 0) otherwise.
func RunExtension(subcommand string, args []string) (bool, int) {
	name := "alloc-" + subcommand

	lp, err := exec.LookPath(name)
	if err != nil {
		return false, 0
	}

	cmd := exec.Command(lp, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	cmd.Env = append(os.Environ(),
		EnvConfigFile+"="+*configFile,
		EnvVerbose+"="+strconv.FormatBool(*verbose),
	)
	if cfg, err := loadConfig(); err == nil {
		cmd.Env = append(cmd.Env, EnvDatabase+"="+cfg.Database.Path)
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return true, exitErr.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "Error executing external command %q: %v\n", name, err)
		return true, 1
	}
	return true, 0
}
