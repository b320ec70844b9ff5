package main

import (
	"flag"
	"os"
	"time"

	"github.com/eclassroom/eclass/internal/platform/config"
	"github.com/eclassroom/eclass/internal/tools/eclasstoken"
)

func main() {
	cfg, err := eclasstoken.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := eclasstoken.Run(cfg, os.Stdout, nil, time.Now()); err != nil {
		config.Exitf("eclass token: %v", err)
	}
}
