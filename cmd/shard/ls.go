// ls.go -- 'ls' command implementation
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

type lsCommand struct{}

func init() {
	m := lsCommand{}
	register("ls", &m)
}

func (m *lsCommand) run(args []string, opt *Option) error {
	fs := flag.NewFlagSet("ls", flag.ExitOnError)
	fs.SetOutput(os.Stdout)
	fs.Usage = func() {
		fmt.Printf(`Usage: ls SHARD

where 'SHARD' is a shard file
`)
		fs.PrintDefaults()
		os.Exit(0)
	}

	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("ls: %w", err)
	}

	args = fs.Args()
	if len(args) < 1 {
		return fmt.Errorf("ls: insufficient args")
	}

	s, err := shard.Open(args[0])
	if err != nil {
		return fmt.Errorf("ls: %w", err)
	}
	defer s.Close()

	err = s.IterFunc(func(key []byte) error {
		sz, err := s.SizeOf(key)
		if err != nil {
			return err
		}
		fmt.Printf("%x: %d bytes\n", key, sz)
		return nil
	})
	if err != nil {
		return fmt.Errorf("ls: %w", err)
	}
	return nil
}
