package models

import (
	"encoding/binary"
	"github.com/lunixbochs/struc"
	"io"
)

// StrucStream packs fixed-layout structs onto a stream.
// Either side may be nil if the stream is only read or only written.
type StrucStream struct {
	R     io.Reader
	W     io.Writer
	Order binary.ByteOrder
}

func (s *StrucStream) Pack(vals ...interface{}) error {
	for _, v := range vals {
		if err := struc.PackWithOrder(s.W, v, s.Order); err != nil {
			return err
		}
	}
	return nil
}

func (s *StrucStream) Unpack(vals ...interface{}) error {
	for _, v := range vals {
		if err := struc.UnpackWithOrder(s.R, v, s.Order); err != nil {
			return err
		}
	}
	return nil
}
