package dump

import (
	"fmt"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"io"
	"strings"

	"github.com/lunixbochs/emucore/go/cmd"
	"github.com/lunixbochs/emucore/go/models/cpu"
	"github.com/lunixbochs/emucore/go/savestate"
)

// ParseLayout reads "gs+,spu2,pad": a trailing + marks a continuation block.
func ParseLayout(s string) ([]savestate.Entry, error) {
	if s == "" {
		return nil, nil
	}
	var layout []savestate.Entry
	seen := make(map[string]bool)
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		e := savestate.Entry{Name: strings.TrimSuffix(item, "+")}
		e.Supplement = e.Name != item
		if e.Name == "" {
			return nil, errors.Errorf("empty subsystem name in layout %q", s)
		}
		if seen[e.Name] {
			return nil, errors.Errorf("subsystem %s listed twice", e.Name)
		}
		seen[e.Name] = true
		layout = append(layout, e)
	}
	return layout, nil
}

func Print(w io.Writer, p *cmd.Palette, name string, size int, sum *savestate.Summary, pages bool) {
	fmt.Fprintf(w, "%s: %d bytes\n", p.Name(cmd.Clean(name)), size)

	fmt.Fprintln(w, p.Head(fmt.Sprintf("registers (%d)", len(sum.Regs))))
	for _, r := range sum.Regs {
		fmt.Fprintf(w, "  %s %#x\n", p.Pad(fmt.Sprintf("#%d", r.Enum), 5, p.Dim), r.Val)
	}

	var total uint64
	for _, pg := range sum.Pages {
		total += pg.Size
	}
	fmt.Fprintln(w, p.Head(fmt.Sprintf("pages (%d, %#x bytes)", len(sum.Pages), total)))
	if pages {
		for _, pg := range sum.Pages {
			fmt.Fprintf(w, "  %s\n", &cpu.Page{Addr: pg.Addr, Size: pg.Size, Prot: pg.Prot})
		}
	}

	width := 0
	for _, rec := range sum.Records {
		if len(rec.Name) > width {
			width = len(rec.Name)
		}
	}
	fmt.Fprintln(w, p.Head(fmt.Sprintf("records (%d)", len(sum.Records))))
	for _, rec := range sum.Records {
		line := fmt.Sprintf("  %s @%#06x %#x", p.Pad(cmd.Clean(rec.Name), width, p.Name), rec.Offset, rec.Size)
		if rec.Block >= 0 {
			line += fmt.Sprintf(" +%#x", rec.Block)
		}
		if rec.Size == 0 {
			line += " " + p.Dim("(empty)")
		}
		fmt.Fprintln(w, line)
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("usage: dump [options] <file>")
	}
	layout, err := ParseLayout(c.String("layout"))
	if err != nil {
		return err
	}
	p, err := cmd.PaletteFor(c)
	if err != nil {
		return err
	}
	path := c.Args().First()
	data, err := savestate.ReadFile(path)
	if err != nil {
		return err
	}
	sum, err := savestate.Inspect(data, layout)
	if err != nil {
		return errors.Wrapf(err, "%s: damaged snapshot", path)
	}
	Print(c.App.Writer, p, path, len(data), sum, c.Bool("pages"))
	return nil
}

func init() {
	cmd.Register(&cli.Command{
		Name:      "dump",
		Usage:     "describe the contents of a save state file",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "layout",
				Usage: "subsystem order as name[+],... (+ marks a continuation block)",
			},
			&cli.BoolFlag{
				Name:  "pages",
				Usage: "list every mapped page",
			},
		},
		Action: run,
	})
}
