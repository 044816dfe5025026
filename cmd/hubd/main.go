package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"

	"github.com/robotalks/hub.go/pkg/daemon"
	"github.com/robotalks/hub.go/pkg/framework"
)

func init() {
	daemon.SetupFlags()
}

func main() {
	flag.Parse()

	conf := daemon.MustLoad()
	d := conf.MustNew()
	defer d.Close()

	runner := framework.NewRunner().HandleSignals()
	loop := framework.NewLoop(conf.PollInterval).Add(d)
	if err := runner.Go(loop).Wait(); err != nil {
		log.Fatalln(err)
	}
}
