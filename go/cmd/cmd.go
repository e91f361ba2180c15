package cmd

import (
	"github.com/lunixbochs/vtclean"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"github.com/mgutz/ansi"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"io"
	"os"
	"strings"
)

var ColorFlag = &cli.StringFlag{
	Name:  "color",
	Value: "auto",
	Usage: "colorize output: auto, always or never",
}

var (
	chHead = ansi.ColorCode("default+bu:default")
	chName = ansi.ColorCode("cyan+b")
	chWarn = ansi.ColorCode("red+b")
	chDim  = ansi.ColorCode("black+h")
)

// Palette colors terminal output. The zero value prints plain text.
type Palette struct {
	enabled bool
}

// NewPalette resolves a --color mode against the writer output goes to.
func NewPalette(mode string, w io.Writer) (*Palette, error) {
	switch mode {
	case "always":
		return &Palette{true}, nil
	case "never":
		return &Palette{false}, nil
	case "auto", "":
		f, ok := w.(*os.File)
		if !ok {
			return &Palette{false}, nil
		}
		fd := f.Fd()
		return &Palette{isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)}, nil
	}
	return nil, errors.Errorf("unknown color mode %q", mode)
}

// PaletteFor reads --color from the app flags and the app's output writer.
func PaletteFor(c *cli.Context) (*Palette, error) {
	return NewPalette(c.String(ColorFlag.Name), c.App.Writer)
}

func (p *Palette) paint(s, color string) string {
	if p == nil || !p.enabled {
		return s
	}
	return color + s + ansi.Reset
}

func (p *Palette) Head(s string) string { return p.paint(s, chHead) }
func (p *Palette) Name(s string) string { return p.paint(s, chName) }
func (p *Palette) Warn(s string) string { return p.paint(s, chWarn) }
func (p *Palette) Dim(s string) string  { return p.paint(s, chDim) }

// Pad right-aligns s to width display cells, then colors it.
func (p *Palette) Pad(s string, width int, color func(string) string) string {
	if n := width - runewidth.StringWidth(s); n > 0 {
		s = strings.Repeat(" ", n) + s
	}
	return color(s)
}

// Clean strips terminal escapes from text read off disk or the command line.
func Clean(s string) string {
	return vtclean.Clean(s, false)
}
