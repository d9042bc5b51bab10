// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"io"
	"log"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/term"

	"github.com/ezrec/rvmon/disk"
	"github.com/ezrec/rvmon/heap"
	"github.com/ezrec/rvmon/internal"
	"github.com/ezrec/rvmon/machine"
	"github.com/ezrec/rvmon/monitor"
)

// console joins stdin and stdout into the monitor's terminal session.
type console struct {
	io.Reader
	io.Writer
}

// crlfWriter expands bare newlines for a terminal in raw mode.
type crlfWriter struct {
	out io.Writer
}

func (cw *crlfWriter) Write(p []byte) (n int, err error) {
	for _, c := range p {
		if c == '\n' {
			_, err = cw.out.Write([]byte{'\r', '\n'})
		} else {
			_, err = cw.out.Write([]byte{c})
		}
		if err != nil {
			return
		}
		n++
	}

	return
}

func main() {
	var manifest string
	var output string
	var image string
	var verbose bool

	flag.StringVar(&manifest, "c", "", ".star manifest to build a disk image from")
	flag.StringVar(&output, "o", "disk.img", "Disk image output (gzip when ending in .gz)")
	flag.StringVar(&image, "d", "", "Disk image to boot")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if len(manifest) == 0 && len(image) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	// Build a new disk image.
	if len(manifest) != 0 {
		builder := &disk.Builder{
			Verbose: verbose,
			Defines: internal.IterSeq2Concat(machine.Defines(), heap.Defines()),
		}

		err := builder.LoadManifest(manifest)
		if err != nil {
			log.Fatalf("%v: %v", manifest, err)
		}

		ouf, err := os.Create(output)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		defer ouf.Close()

		var out io.Writer = ouf
		if strings.HasSuffix(output, ".gz") {
			zw := gzip.NewWriter(ouf)
			defer zw.Close()
			out = zw
		}

		_, err = out.Write(builder.Image())
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
	}

	// Boot the monitor on a disk image.
	if len(image) != 0 {
		inf, err := os.Open(image)
		if err != nil {
			log.Fatalf("%v: %v", image, err)
		}

		img, err := disk.Open(inf)
		inf.Close()
		if err != nil {
			log.Fatalf("%v: %v", image, err)
		}

		term_console := &console{Reader: os.Stdin, Writer: os.Stdout}

		// Raw mode delivers backspace bytes to the monitor's line editor.
		var state *term.State
		fd := int(os.Stdin.Fd())
		if term.IsTerminal(fd) {
			state, err = term.MakeRaw(fd)
			if err != nil {
				log.Fatalf("%v: %v", image, err)
			}
			term_console.Writer = &crlfWriter{out: os.Stdout}
		}

		mon := monitor.NewMonitor(term_console, img, &machine.StubRunner{})
		mon.Verbose = verbose

		err = mon.Run()
		if state != nil {
			term.Restore(fd, state)
		}
		if err != nil {
			log.Fatalf("%v: %v", image, err)
		}
	}
}
