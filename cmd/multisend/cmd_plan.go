package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/iov-one/multisend"
	"github.com/iov-one/multisend/coin"
	"github.com/iov-one/multisend/transfer"
)

func cmdPlan(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Validate the transfers file and print how it is going to be split into
transactions. This command does not connect to any node.
`)
		fl.PrintDefaults()
	}
	s := newSettings(fl)
	fl.Parse(args)

	conf, err := s.config()
	if err != nil {
		return fmt.Errorf("invalid configuration: %s", err)
	}
	transfers, err := s.transfers(input)
	if err != nil {
		return err
	}
	total, err := transfer.Total(transfers)
	if err != nil {
		return fmt.Errorf("cannot compute total: %s", err)
	}

	sizes := batchSizes(len(transfers), conf.BatchSize)
	fmt.Fprintf(output, "Transfers:   %d\n", len(transfers))
	fmt.Fprintf(output, "Total:       %s\n", s.asset(coin.Coin{Amount: total, Denom: s.assetDenom()}))
	fmt.Fprintf(output, "Batches:     %d\n", len(sizes))
	_, err = fmt.Fprintf(output, "Batch sizes: %s\n", strings.Trim(fmt.Sprint(sizes), "[]"))
	return err
}

// batchSizes returns the number of transfers in each consecutive batch.
func batchSizes(n, size int) []int {
	count := multisend.BatchCount(n, size)
	sizes := make([]int, count)
	for i := range sizes {
		sizes[i] = size
		if rest := n - i*size; rest < size {
			sizes[i] = rest
		}
	}
	return sizes
}
