package scope

import (
	"fmt"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"io"

	"github.com/lunixbochs/emucore/go/cmd"
	"github.com/lunixbochs/emucore/go/models"
)

// Describe prints which translated-code caches switching from old to next would flush.
func Describe(w io.Writer, p *cmd.Palette, old, next *models.Config) {
	rec, prof := old.ResetScope(next)
	mark := func(name string, reset bool) {
		if reset {
			fmt.Fprintf(w, "%s: %s\n", name, p.Warn("reset"))
		} else {
			fmt.Fprintf(w, "%s: %s\n", name, p.Dim("kept"))
		}
	}
	mark("recompiler", rec)
	mark("profiler", prof)
}

func run(c *cli.Context) error {
	if c.NArg() != 2 {
		return errors.New("usage: scope <old.yaml> <new.yaml>")
	}
	old, err := models.LoadConfig(c.Args().Get(0))
	if err != nil {
		return err
	}
	next, err := models.LoadConfig(c.Args().Get(1))
	if err != nil {
		return err
	}
	p, err := cmd.PaletteFor(c)
	if err != nil {
		return err
	}
	Describe(c.App.Writer, p, old, next)
	return nil
}

func init() {
	cmd.Register(&cli.Command{
		Name:      "scope",
		Usage:     "show which caches a settings change would reset",
		ArgsUsage: "<old.yaml> <new.yaml>",
		Action:    run,
	})
}
