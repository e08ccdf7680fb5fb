// Probe decodes audio files the way a deck would and prints where playback
// would start and where auto-advance would trigger.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/llehouerou/deckcast/internal/deck"
	"github.com/llehouerou/deckcast/internal/errmsg"
	"github.com/llehouerou/deckcast/internal/pcm"
	"github.com/llehouerou/deckcast/internal/source"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: probe FILE...")
		os.Exit(2)
	}

	failed := false
	for _, path := range os.Args[1:] {
		if err := probe(path); err != nil {
			log.Println(errmsg.FormatWith(errmsg.OpSourceProbe, path, err))
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func probe(path string) error {
	src, err := source.OpenFile(path)
	if err != nil {
		return err
	}
	defer src.Close()

	start := time.Now()
	a, err := deck.Analyze(src)
	if err != nil {
		return err
	}

	fmt.Println(path)
	fmt.Printf("  format:   %s\n", a.Format)
	fmt.Printf("  length:   %s (hint %s), %s decoded\n",
		tenths(a.Length), tenths(a.Duration), humanize.Bytes(uint64(a.Bytes))) //nolint:gosec // byte count
	fmt.Printf("  peak:     %.3f\n", a.Peak)
	fmt.Printf("  cue:      %s\n", offset(a.Format, a.CueOffset))
	fmt.Printf("  advance:  %s\n", offset(a.Format, a.MarkerOffset))
	fmt.Printf("  analyzed in %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func offset(f pcm.Format, n int64) string {
	if n < 0 {
		return "never"
	}
	return fmt.Sprintf("%s (byte %s)", tenths(f.Tenths(n)), humanize.Comma(n))
}

func tenths(n int) time.Duration {
	return time.Duration(n) * 100 * time.Millisecond
}
