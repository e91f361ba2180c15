package slots

import (
	"fmt"
	"github.com/lunixbochs/fvbommel-util/sortorder"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lunixbochs/emucore/go/cmd"
	"github.com/lunixbochs/emucore/go/recovery"
	"github.com/lunixbochs/emucore/go/savestate"
)

type Slot struct {
	Name    string
	Size    int64
	ModTime time.Time
	Version uint32
	// why the header could not be read, if it couldn't
	Err error
}

func (s *Slot) Current() bool {
	return s.Err == nil && s.Version == savestate.SaveVersion
}

type byName []*Slot

func (b byName) Len() int           { return len(b) }
func (b byName) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }
func (b byName) Less(i, j int) bool { return sortorder.NaturalLess(b[i].Name, b[j].Name) }

func readVersion(path string) (uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return savestate.ReadHeader(f)
}

// List returns the save state files in dir in natural order, so slot10 sorts after slot9.
func List(dir string) ([]*Slot, error) {
	infos, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "ioutil.ReadDir() failed")
	}
	var slots []*Slot
	for _, fi := range infos {
		if fi.IsDir() || !strings.HasSuffix(fi.Name(), recovery.SlotExt) {
			continue
		}
		s := &Slot{Name: fi.Name(), Size: fi.Size(), ModTime: fi.ModTime()}
		s.Version, s.Err = readVersion(filepath.Join(dir, fi.Name()))
		slots = append(slots, s)
	}
	sort.Sort(byName(slots))
	return slots, nil
}

func Print(w io.Writer, p *cmd.Palette, dir string, slots []*Slot) {
	fmt.Fprintln(w, p.Head(cmd.Clean(dir)))
	if len(slots) == 0 {
		fmt.Fprintln(w, p.Dim("  no save states"))
		return
	}
	width := 0
	for _, s := range slots {
		if len(s.Name) > width {
			width = len(s.Name)
		}
	}
	for _, s := range slots {
		line := fmt.Sprintf("  %s %10d %s", p.Pad(cmd.Clean(s.Name), width, p.Name), s.Size, s.ModTime.Format("2006-01-02 15:04:05"))
		switch {
		case s.Err != nil:
			line += " " + p.Warn("unreadable")
		case !s.Current():
			line += " " + p.Warn(fmt.Sprintf("version %d.%d", s.Version>>16, s.Version&0xffff))
		}
		fmt.Fprintln(w, line)
	}
}

func run(c *cli.Context) error {
	if c.NArg() > 1 {
		return errors.New("usage: slots [dir]")
	}
	dir := c.Args().First()
	if dir == "" {
		var err error
		if dir, err = recovery.DataDir(); err != nil {
			return err
		}
	}
	p, err := cmd.PaletteFor(c)
	if err != nil {
		return err
	}
	slots, err := List(dir)
	if err != nil {
		return err
	}
	Print(c.App.Writer, p, dir, slots)
	return nil
}

func init() {
	cmd.Register(&cli.Command{
		Name:      "slots",
		Usage:     "list save state slots",
		ArgsUsage: "[dir]",
		Action:    run,
	})
}
