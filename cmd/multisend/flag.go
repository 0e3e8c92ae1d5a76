package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/iov-one/multisend/coin"
)

// flFraction returns a value that is being initialized with given default
// value and optionally overwritten by a command line argument if provided.
// This function follows Go's flag package convention.
// If given value cannot be deserialized to required type, process is
// terminated.
func flFraction(fl *flag.FlagSet, name, defaultVal, usage string) *coin.Fraction {
	var f coin.Fraction
	if defaultVal != "" {
		var err error
		f, err = coin.ParseFraction(defaultVal)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot parse %q fraction flag value. %s", name, err)
			os.Exit(2)
		}
	}
	fl.Var(&f, name, usage)
	return &f
}

// flagsSet returns the names of all flags that were provided on the command
// line.
func flagsSet(fl *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fl.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}
