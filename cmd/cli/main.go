// Command btcompress is the argv-driven entry point: compress a raw
// block file, decompress a compressed one, or dump a raw block file for
// human inspection (spec section 6, extended by SPEC_FULL.md section 4.9
// with the -p dump mode).
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"btcompress/pkg/compressor"
	"btcompress/pkg/config"
	"btcompress/pkg/decompressor"
	"btcompress/pkg/dump"
	"btcompress/pkg/logging"
	"btcompress/pkg/parser"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "-c":
		if len(os.Args) != 4 {
			printUsage()
			os.Exit(0)
		}
		runCompress(os.Args[2], os.Args[3])
	case "-d":
		if len(os.Args) != 4 {
			printUsage()
			os.Exit(0)
		}
		runDecompress(os.Args[2], os.Args[3])
	case "-p":
		if len(os.Args) != 3 {
			printUsage()
			os.Exit(0)
		}
		runDump(os.Args[2])
	default:
		printUsage()
		os.Exit(0)
	}
}

func printUsage() {
	fmt.Println("Program usage:")
	fmt.Println("To compress,")
	fmt.Println("\tbtcompress -c input_file output_file")
	fmt.Println("To decompress,")
	fmt.Println("\tbtcompress -d input_file output_file")
	fmt.Println("To dump a raw block file for inspection,")
	fmt.Println("\tbtcompress -p input_file")
}

func runCompress(inputPath, outputPath string) {
	log := logging.L()

	input, err := os.Open(inputPath)
	if err != nil {
		fatal(log, "IO_OPEN", err)
	}
	defer input.Close()

	output, err := os.Create(outputPath)
	if err != nil {
		fatal(log, "IO_OPEN", err)
	}
	defer output.Close()

	opts := compressor.CompressOptions{Lossy: !config.Strict()}
	if err := compressor.Compress(context.Background(), input, output, opts); err != nil {
		fatal(log, "COMPRESS_FAILED", err)
	}
}

func runDecompress(inputPath, outputPath string) {
	log := logging.L()

	input, err := os.Open(inputPath)
	if err != nil {
		fatal(log, "IO_OPEN", err)
	}
	defer input.Close()

	output, err := os.Create(outputPath)
	if err != nil {
		fatal(log, "IO_OPEN", err)
	}
	defer output.Close()

	if err := decompressor.Decompress(context.Background(), input, output); err != nil {
		fatal(log, "DECOMPRESS_FAILED", err)
	}
}

func runDump(inputPath string) {
	log := logging.L()

	input, err := os.Open(inputPath)
	if err != nil {
		fatal(log, "IO_OPEN", err)
	}
	defer input.Close()

	// One bufio.Reader shared across every block: ParseBlock's SegWit-marker
	// peek routinely buffers ahead past the current block's end, and a
	// fresh reader per call would discard that lookahead instead of letting
	// the next ParseBlock call pick up where it left off.
	reader := bufio.NewReader(input)
	for {
		block, err := parser.ParseBlock(reader)
		if err != nil {
			if errors.Cause(err) == io.EOF {
				break
			}
			fatal(log, "DUMP_FAILED", err)
		}
		rendered := dump.Build(block, dump.Mainnet)
		if err := dump.Fprint(os.Stdout, rendered); err != nil {
			fatal(log, "DUMP_FAILED", err)
		}
		fmt.Println()
	}
}

func fatal(log *logrus.Logger, code string, err error) {
	log.WithField("code", code).WithError(err).Error("btcompress failed")
	fmt.Fprintf(os.Stderr, "Error [%s]: %v\n", code, err)
	os.Exit(1)
}
