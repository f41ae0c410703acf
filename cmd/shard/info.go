// info.go -- 'info' command implementation
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
	"fmt"
	"os"

	"github.com/opencoff/go-shard"
	flag "github.com/opencoff/pflag"
)

type infoCommand struct{}

func init() {
	m := infoCommand{}
	register("info", &m)
}

func (m *infoCommand) run(args []string, opt *Option) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	fs.SetOutput(os.Stdout)
	fs.Usage = func() {
		fmt.Printf(`Usage: info SHARD...

where 'SHARD' is one or more shard files
`)
		fs.PrintDefaults()
		os.Exit(0)
	}

	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("info: %w", err)
	}

	args = fs.Args()
	if len(args) < 1 {
		return fmt.Errorf("info: insufficient args")
	}

	for _, fn := range args {
		s, err := shard.Open(fn)
		if err != nil {
			return fmt.Errorf("info: %w", err)
		}

		h := s.Header()
		fmt.Printf("Shard %s\n", fn)
		fmt.Printf("├─version:    %d\n", shard.Version)
		fmt.Printf("├─objects:    %d\n", h.ObjectsCount)
		fmt.Printf("│ ├─position: %d\n", h.ObjectsPosition)
		fmt.Printf("│ └─size:     %d\n", h.ObjectsSize)
		fmt.Printf("├─index\n")
		fmt.Printf("│ ├─position: %d\n", h.IndexPosition)
		fmt.Printf("│ └─size:     %d\n", h.IndexSize)
		fmt.Printf("└─hash\n")
		fmt.Printf("  └─position: %d\n", h.HashPosition)
		s.Close()
	}
	return nil
}
