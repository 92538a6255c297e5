// clothbake compiles cloth sources into binary topology bundles.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "bake":
		err = cmdBake(args)
	case "batch":
		err = cmdBatch(args)
	case "info":
		err = cmdInfo(args)
	case "dump":
		err = cmdDump(args)
	case "grid":
		err = cmdGrid(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`clothbake - cloth topology baker

Usage:
  clothbake <command> [options]

Commands:
  bake <source.yaml> [-o out.mcla]      Bake one source into a bundle
  batch [-o dir] [-j N] <source.yaml>... Bake many sources in parallel
  info <bundle.mcla>                     Show bundle summary
  dump <bundle.mcla|source.yaml>         Print the deterministic text dump
  grid [-cols N] [-rows N] [-o file]     Write a hanging-sheet source

Examples:
  clothbake grid -cols 8 -rows 12 -o sheet.yaml
  clothbake bake sheet.yaml -bend -near
  clothbake batch -o bundles -j 4 cloth/*.yaml
  clothbake info bundles/sheet.mcla`)
}
