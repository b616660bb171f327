package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/placebolab/coach/internal/cli"
	"github.com/placebolab/coach/internal/constants"
	"github.com/placebolab/coach/internal/logger"
)

var CLI struct {
	Version   kong.VersionFlag
	Debug     bool   `help:"Enable debug logging." env:"COACH_DEBUG"`
	APIURL    string `help:"Base URL of the sync server." name:"api-url" env:"COACH_API_URL" default:"http://localhost:8000/api"`
	ConfigDir string `help:"Directory for local state." type:"path" env:"COACH_CONFIG_DIR" default:"${config_dir}"`

	Tui    cli.TuiCmd    `cmd:"" help:"Launch the interactive TUI." default:"1"`
	Login  cli.LoginCmd  `cmd:"" help:"Sign in and store the session in the OS keyring."`
	Logout cli.LogoutCmd `cmd:"" help:"Revoke the stored session."`
	Doctor cli.DoctorCmd `cmd:"" help:"Check local state and server reachability."`
	Reset  cli.ResetCmd  `cmd:"" help:"Erase local data and stored tokens."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("coach"),
		kong.Description("Blinded micro-practice experiment companion"),
		kong.UsageOnError(),
		kong.Vars{
			"version":    constants.Version,
			"config_dir": constants.DefaultConfigDir,
		},
	)

	if err := logger.Init(logger.Config{Debug: CLI.Debug, ConfigDir: CLI.ConfigDir}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	appCtx := &cli.Context{
		Debug:     CLI.Debug,
		APIURL:    CLI.APIURL,
		ConfigDir: CLI.ConfigDir,
	}
	if err := ctx.Run(appCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
