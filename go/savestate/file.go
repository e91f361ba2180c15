package savestate

import (
	"encoding/binary"
	"github.com/golang/snappy"
	"github.com/pkg/errors"
	"io"
	"io/ioutil"
	"os"

	"github.com/lunixbochs/emucore/go/models"
)

// persisted file:
// uint32(SaveVersion)
// remainder is a snappy-framed full snapshot

// major<<16 | minor
const SaveVersion uint32 = 1<<16 | 0

var ErrVersion = errors.New("savestate: unsupported version")

type fileHeader struct {
	Version uint32
}

// Create writes a versioned file at path, compressing whatever fill writes.
// On any error the file is removed.
func Create(path string, fill func(w io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "os.Create() failed")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "file.Close() failed")
		}
		if err != nil {
			os.Remove(path)
		}
	}()
	if err := Encode(f, fill); err != nil {
		return err
	}
	return f.Sync()
}

// Encode writes the file header and a compressed body to w.
func Encode(w io.Writer, fill func(w io.Writer) error) error {
	s := &models.StrucStream{W: w, Order: binary.LittleEndian}
	if err := s.Pack(&fileHeader{SaveVersion}); err != nil {
		return errors.Wrap(err, "pack file header")
	}
	sw := snappy.NewBufferedWriter(w)
	if err := fill(sw); err != nil {
		sw.Close()
		return err
	}
	return errors.Wrap(sw.Close(), "snappy flush failed")
}

// WriteFile persists an already encoded full snapshot.
func WriteFile(path string, snapshot []byte) error {
	return Create(path, func(w io.Writer) error {
		_, err := w.Write(snapshot)
		return err
	})
}

// ReadHeader returns the version stamped at the start of a persisted file.
func ReadHeader(r io.Reader) (uint32, error) {
	s := &models.StrucStream{R: r, Order: binary.LittleEndian}
	var hdr fileHeader
	if err := s.Unpack(&hdr); err != nil {
		return 0, errors.Wrap(err, "unpack file header")
	}
	return hdr.Version, nil
}

// Decode checks the header and returns the decompressed snapshot.
func Decode(r io.Reader) ([]byte, error) {
	version, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	if version != SaveVersion {
		return nil, errors.Wrapf(ErrVersion, "version %#x, want %#x", version, SaveVersion)
	}
	data, err := ioutil.ReadAll(snappy.NewReader(r))
	if err != nil {
		return nil, errors.Wrap(err, "snappy read failed")
	}
	return data, nil
}

func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "os.Open() failed")
	}
	defer f.Close()
	data, err := Decode(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return data, nil
}
