// cmds.go -- subcommand dispatch for the shard tool
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
	"sort"
)

// subCommand is one verb of the shard tool (create, info, ls, get).
// args[0] is the subcommand name; the rest are its flags and operands.
type subCommand interface {
	run(args []string, opt *Option) error
}

// registry of subcommands; each command adds itself from init(), so
// the map is complete and read-only by the time main() dispatches.
var subCommands = make(map[string]subCommand)

func register(nm string, cmd subCommand) {
	if _, ok := subCommands[nm]; ok {
		panic(fmt.Sprintf("shard: subcommand %s registered twice", nm))
	}
	subCommands[nm] = cmd
}

func dispatch(args []string, o *Option) error {
	cmd, ok := subCommands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %s; expected one of %v", args[0], commandNames())
	}

	return cmd.run(args, o)
}

func commandNames() []string {
	names := make([]string, 0, len(subCommands))
	for nm := range subCommands {
		names = append(names, nm)
	}
	sort.Strings(names)
	return names
}

// Option carries the global flags down to every subcommand.
type Option struct {
	verbose bool
}

// Printf prints progress output when the tool runs verbose.
func (o *Option) Printf(s string, v ...interface{}) {
	if o.verbose {
		fmt.Printf(s, v...)
	}
}
