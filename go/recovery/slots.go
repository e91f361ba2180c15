package recovery

import (
	"fmt"
	"github.com/pkg/errors"
	"github.com/shibukawa/configdir"
	"os"
	"path/filepath"
)

// SlotNamer maps a save slot number to a file path.
type SlotNamer func(slot int) (string, error)

const SlotExt = ".state"

func SlotName(slot int) string {
	return fmt.Sprintf("slot%d%s", slot, SlotExt)
}

// DataDir is the per-user folder holding save slots. It is created if missing.
func DataDir() (string, error) {
	folders := configdir.New("lunixbochs", "emucore").QueryFolders(configdir.Global)
	if len(folders) == 0 {
		return "", errors.New("no data folder available")
	}
	if err := folders[0].MkdirAll(); err != nil {
		return "", errors.Wrap(err, "MkdirAll() failed")
	}
	return folders[0].Path, nil
}

// DefaultSlotNamer places slots in dir, or in DataDir() when dir is empty.
func DefaultSlotNamer(dir string) SlotNamer {
	return func(slot int) (string, error) {
		if slot < 0 {
			return "", errors.Errorf("invalid save slot: %d", slot)
		}
		if dir == "" {
			data, err := DataDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(data, SlotName(slot)), nil
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", errors.Wrap(err, "os.MkdirAll() failed")
		}
		return filepath.Join(dir, SlotName(slot)), nil
	}
}
