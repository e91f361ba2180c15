package main

import (
	"github.com/lunixbochs/emucore/go/cmd"

	_ "github.com/lunixbochs/emucore/go/cmd/dump"
	_ "github.com/lunixbochs/emucore/go/cmd/scope"
	_ "github.com/lunixbochs/emucore/go/cmd/slots"
)

func main() { cmd.Main() }
