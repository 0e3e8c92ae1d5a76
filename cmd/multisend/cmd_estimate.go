package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/iov-one/multisend"
	"github.com/iov-one/multisend/client"
	"github.com/iov-one/multisend/coin"
	"github.com/iov-one/multisend/errors"
	"github.com/iov-one/multisend/transfer"
)

func cmdEstimate(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Estimate the total fee of sending all transfers and verify that the account
can afford both the transfers and the fee. Nothing is broadcast.
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
	logger := newLogger(*s.debug)
	ctx := context.Background()
	signer, err := s.signer(ctx, logger)
	if err != nil {
		return err
	}
	msgs, err := transfer.EncodeAll(s.encoder(signer.Address()), transfers)
	if err != nil {
		return fmt.Errorf("cannot encode transfers: %s", err)
	}
	engine, err := multisend.NewEngine(conf, multisend.WithLogger(logger))
	if err != nil {
		return err
	}

	funds, err := collectFunds(ctx, engine, signer, s.assetDenom(), conf.FeeDenom, transfers, msgs)
	if err != nil {
		return err
	}
	fmt.Fprintf(output, "Sender:      %s\n", signer.Address())
	fmt.Fprintf(output, "Transfers:   %d\n", len(transfers))
	fmt.Fprintf(output, "Total:       %s\n", s.asset(funds.Send))
	fmt.Fprintf(output, "Available:   %s\n", s.asset(funds.Available))
	if funds.Fee != nil {
		fmt.Fprintf(output, "Fee:         %s\n", funds.Fee.Human(conf.FeeExponent, conf.FeeSymbol))
	} else {
		fmt.Fprintf(output, "Fee:         unknown\n")
	}
	if conf.FeeDenom != funds.Send.Denom {
		fmt.Fprintf(output, "Fee balance: %s\n", funds.FeeAvailable.Human(conf.FeeExponent, conf.FeeSymbol))
	}
	return reportAffordability(output, funds)
}

// collectFunds estimates the fee and queries balances of the sending
// account. A fee that cannot be estimated is not an error, Fee is nil then.
func collectFunds(
	ctx context.Context,
	engine *multisend.Engine,
	signer *client.Signer,
	assetDenom, feeDenom string,
	transfers []transfer.Transfer,
	msgs []multisend.Message,
) (multisend.Funds, error) {
	var funds multisend.Funds

	total, err := transfer.Total(transfers)
	if err != nil {
		return funds, fmt.Errorf("cannot compute total: %s", err)
	}
	funds.Send = coin.Coin{Amount: total, Denom: assetDenom}

	if funds.Available, err = signer.Balance(ctx, assetDenom); err != nil {
		return funds, fmt.Errorf("cannot query balance: %s", err)
	}
	if feeDenom == assetDenom {
		funds.FeeAvailable = funds.Available
	} else if funds.FeeAvailable, err = signer.Balance(ctx, feeDenom); err != nil {
		return funds, fmt.Errorf("cannot query fee balance: %s", err)
	}

	switch est, err := engine.Estimate(ctx, signer, msgs); {
	case err == nil:
		funds.Fee = &est.Total
	case errors.ErrEstimate.Is(err):
		// Not knowing the fee must not block sending.
	default:
		return funds, fmt.Errorf("cannot estimate fee: %s", err)
	}
	return funds, nil
}

// reportAffordability writes all problems found. Only a shortfall is an
// error, an unknown fee is a warning.
func reportAffordability(output io.Writer, funds multisend.Funds) error {
	err := multisend.CheckAffordability(funds)
	if err == nil {
		_, err := fmt.Fprintln(output, "Ready to send.")
		return err
	}
	var shortfall bool
	for _, e := range errors.Unpack(err) {
		if errors.ErrEstimate.Is(e) {
			fmt.Fprintf(output, "Warning: %s\n", e)
			continue
		}
		shortfall = true
		fmt.Fprintf(output, "Error: %s\n", e)
	}
	if shortfall {
		return errors.Wrap(errors.ErrAmount, "insufficient funds")
	}
	return nil
}
