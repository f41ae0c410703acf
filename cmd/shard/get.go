// get.go -- 'get' command implementation
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
	"encoding/hex"
	"fmt"
	"os"

	"github.com/opencoff/go-shard"
	flag "github.com/opencoff/pflag"
)

type getCommand struct{}

func init() {
	m := getCommand{}
	register("get", &m)
}

func (m *getCommand) run(args []string, opt *Option) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	fs.SetOutput(os.Stdout)
	fs.Usage = func() {
		fmt.Printf(`Usage: get SHARD HEXKEY...

where 'SHARD' is a shard file and each 'HEXKEY' is a hex encoded key.
The raw bytes of each object are written to standard output,
concatenated in argument order.
`)
		fs.PrintDefaults()
		os.Exit(0)
	}

	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("get: %w", err)
	}

	args = fs.Args()
	if len(args) < 2 {
		return fmt.Errorf("get: insufficient args")
	}

	s, err := shard.Open(args[0])
	if err != nil {
		return fmt.Errorf("get: %w", err)
	}
	defer s.Close()

	for _, hk := range args[1:] {
		key, err := hex.DecodeString(hk)
		if err != nil {
			return fmt.Errorf("get: bad key %q: %w", hk, err)
		}

		val, err := s.Lookup(key)
		if err != nil {
			return fmt.Errorf("get: %w", err)
		}

		if _, err := os.Stdout.Write(val); err != nil {
			return fmt.Errorf("get: %w", err)
		}
	}
	return nil
}
