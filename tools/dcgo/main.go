package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/clktmr/dc/tools/dcload"
	"github.com/clktmr/dc/tools/disc"
)

const usageString = `dcgo is a tool for development of Dreamcast software.

Usage:

	%s <command> [arguments]

The commands are:

	disc     build bootable disc images
	dcload   upload binaries over a serial cable
`

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), usageString, os.Args[0])
	flag.PrintDefaults()
}

func main() {
	log.Default().SetFlags(0)
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	switch flag.Arg(0) {
	case "disc":
		disc.Main(flag.Args())
	case "dcload":
		dcload.Main(flag.Args())
	default:
		fmt.Fprintf(flag.CommandLine.Output(), "unknown command: %s\n", flag.Arg(0))
		flag.Usage()
		os.Exit(1)
	}
}
