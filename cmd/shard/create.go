// create.go -- 'create' command implementation
//
// (c) Sudhi Herle 2018
//
// License GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package main

import (
	"bufio"
	"crypto/sha256"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/opencoff/go-shard"
	flag "github.com/opencoff/pflag"
)

type createCommand struct{}

func init() {
	m := createCommand{}
	register("create", &m)
}

type input struct {
	fname string
	key   [sha256.Size]byte
}

func (m *createCommand) run(args []string, opt *Option) error {
	var sortFiles bool

	fs := flag.NewFlagSet("create", flag.ExitOnError)
	fs.SetOutput(os.Stdout)
	fs.BoolVarP(&sortFiles, "sorted", "s", false,
		"Sort entries by reversed filename before writing; helps compression of the output")
	fs.Usage = func() {
		fmt.Printf(`Usage: create [options] SHARD [FILE...|-]

where:
   SHARD   is the name of the output shard file
   FILE    is one or more input files; their contents are hashed with
           SHA-256, deduplicated by digest and packed into the shard.
           A single '-' reads the list of file names from stdin.

Options:
`)
		fs.PrintDefaults()
		os.Exit(0)
	}

	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("create: %w", err)
	}

	args = fs.Args()
	if len(args) < 2 {
		return fmt.Errorf("create: insufficient args")
	}

	out := args[0]
	files := args[1:]

	if len(files) == 1 && files[0] == "-" {
		files = files[:0]
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			if fn := strings.TrimSpace(sc.Text()); len(fn) > 0 {
				files = append(files, fn)
			}
		}
		if err := sc.Err(); err != nil {
			return fmt.Errorf("create: stdin: %w", err)
		}
	}

	opt.Printf("%d input files ..\n", len(files))

	// hash every readable input, dropping duplicate contents
	seen := make(map[[sha256.Size]byte]bool)
	inputs := make([]input, 0, len(files))
	for _, fn := range files {
		data, err := os.ReadFile(fn)
		if err != nil {
			warn("create: skipping %s: %s", fn, err)
			continue
		}

		key := sha256.Sum256(data)
		if seen[key] {
			continue
		}
		seen[key] = true
		inputs = append(inputs, input{fname: fn, key: key})
	}

	opt.Printf("%d entries after deduplication\n", len(inputs))

	if sortFiles {
		sort.Slice(inputs, func(i, j int) bool {
			return reverse(inputs[i].fname) < reverse(inputs[j].fname)
		})
	}

	start := time.Now()
	err := shard.WithBuilder(out, uint64(len(inputs)), func(w *shard.Builder) error {
		for _, in := range inputs {
			data, err := os.ReadFile(in.fname)
			if err != nil {
				return fmt.Errorf("%s: %w", in.fname, err)
			}
			if err := w.Write(in.key[:], data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}

	opt.Printf("wrote %s with %d objects in %s\n", out, len(inputs), time.Since(start))
	return nil
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
