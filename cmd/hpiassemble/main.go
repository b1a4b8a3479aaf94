// Command hpiassemble builds an HPI archive from a filesystem directory.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"

	"github.com/hpiarchive/hpi"
)

var (
	rootDir   = flag.String("root", "", "directory to assemble (required)")
	output    = flag.String("o", "out.hpi", "output archive path")
	mode      = flag.String("mode", "deflate", "compression mode: stored, lz77, deflate, or auto")
	key       = flag.Uint("key", 0, "obfuscation key byte, 0-255 (0 disables obfuscation)")
	reference = flag.String("reference", "", "reference archive to validate against (optional)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -root <dir> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Builds an HPI archive from a filesystem directory.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -root ./extracted -o totala1.hpi\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -root ./extracted -mode auto -key 42 -reference totala1.hpi\n", os.Args[0])
	}
	flag.Parse()

	if *rootDir == "" {
		fmt.Fprintf(os.Stderr, "Error: root directory required (-root)\n")
		flag.Usage()
		os.Exit(1)
	}

	modeByte, err := parseMode(*mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *key > 255 {
		fmt.Fprintf(os.Stderr, "Error: key must be in [0, 255]\n")
		os.Exit(1)
	}

	fsys := afero.NewOsFs()

	result, err := hpi.Assemble(fsys, *rootDir, hpi.AssembleOptions{
		Mode:      modeByte,
		Key:       byte(*key),
		Reference: *reference,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error assembling archive: %v\n", err)
		os.Exit(1)
	}

	if err := afero.WriteFile(fsys, *output, result.Archive, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing archive: %v\n", err)
		os.Exit(1)
	}

	digest := hex.EncodeToString(result.SHA256[:])
	if isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Printf("\x1b[32m%s\x1b[0m  %s\n", digest, *output)
	} else {
		fmt.Printf("%s  %s\n", digest, *output)
	}

	if result.Validation != nil {
		colorize := isatty.IsTerminal(os.Stderr.Fd())
		fmt.Fprintf(os.Stderr, "\nValidation against %s found discrepancies:\n", *reference)
		for _, path := range result.Validation.Missing {
			printDiscrepancy(colorize, "missing", path)
		}
		for _, path := range result.Validation.Mismatched {
			printDiscrepancy(colorize, "mismatched", path)
		}
		os.Exit(1)
	}
}

func printDiscrepancy(colorize bool, kind, path string) {
	if colorize {
		fmt.Fprintf(os.Stderr, "  \x1b[33m%-10s\x1b[0m %s\n", kind+":", path)
		return
	}
	fmt.Fprintf(os.Stderr, "  %-10s %s\n", kind+":", path)
}

func parseMode(s string) (byte, error) {
	switch s {
	case "stored":
		return hpi.ModeStored, nil
	case "lz77":
		return hpi.ModeLZ77, nil
	case "deflate":
		return hpi.ModeDeflate, nil
	case "auto":
		return hpi.ModeAuto, nil
	default:
		if n, err := strconv.Atoi(s); err == nil && n >= 0 && n <= 2 {
			return byte(n), nil
		}
		return 0, fmt.Errorf("unknown compression mode %q (want stored, lz77, deflate, or auto)", s)
	}
}
