// Command hpiextract lists and extracts the contents of HPI archives.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"

	"github.com/hpiarchive/hpi"
)

var (
	archivePath = flag.String("i", "", "archive path (required)")
	listOnly    = flag.Bool("list", false, "list archive contents and exit")
	entryPath   = flag.String("entry", "", "extract a single archive-internal path (default: extract all)")
	destDir     = flag.String("o", ".", "destination directory for extraction")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -i <archive.hpi> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Lists and extracts the contents of HPI archives.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -i totala1.hpi -list\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i totala1.hpi -o ./out\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i totala1.hpi -entry anims/core.gaf -o ./out\n", os.Args[0])
	}
	flag.Parse()

	if *archivePath == "" {
		fmt.Fprintf(os.Stderr, "Error: archive path required (-i)\n")
		flag.Usage()
		os.Exit(1)
	}

	fsys := afero.NewOsFs()

	parser, err := hpi.OpenFS(fsys, *archivePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening archive: %v\n", err)
		os.Exit(1)
	}

	if *listOnly {
		listEntries(parser)
		return
	}

	if *entryPath != "" {
		if err := parser.ExtractEntry(fsys, *entryPath, *destDir); err != nil {
			fmt.Fprintf(os.Stderr, "Error extracting %q: %v\n", *entryPath, err)
			os.Exit(1)
		}
		fmt.Printf("Extracted %s\n", *entryPath)
		return
	}

	if err := parser.ExtractAll(fsys, *destDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error extracting archive: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Extracted %d files to %s\n", len(parser.List()), *destDir)
}

func listEntries(parser *hpi.Parser) {
	colorize := isatty.IsTerminal(os.Stdout.Fd())
	for _, e := range parser.ListEntries() {
		flag := "     "
		if e.Compressed {
			flag = "[C]  "
		}
		if colorize {
			fmt.Printf("%s\x1b[36m%-9d\x1b[0m \x1b[36m%s\x1b[0m\n", flag, e.Size, e.Path)
		} else {
			fmt.Printf("%s%-9d %s\n", flag, e.Size, e.Path)
		}
	}
}
