package main

import (
	"github.com/robotalks/hub.go/pkg/cli/sh"

	_ "github.com/robotalks/hub.go/pkg/cli/cmds"
)

//go-build: CGO_ENABLED=0

func main() {
	sh.Main()
}
