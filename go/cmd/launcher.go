package cmd

import (
	"fmt"
	"github.com/urfave/cli/v2"
	"os"
)

var commands []*cli.Command

// Register adds a subcommand. Call it from an init() in the command's package.
func Register(c *cli.Command) {
	commands = append(commands, c)
}

func NewApp() *cli.App {
	return &cli.App{
		Name:     "emucore",
		Usage:    "inspect save states, slots and settings",
		Flags:    []cli.Flag{ColorFlag},
		Commands: commands,
		Action: func(c *cli.Context) error {
			return cli.ShowAppHelp(c)
		},
	}
}

func Main() {
	if err := NewApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
