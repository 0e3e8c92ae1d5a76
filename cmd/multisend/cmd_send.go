package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/iov-one/multisend"
	"github.com/iov-one/multisend/transfer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendermint/tendermint/libs/log"
)

func cmdSend(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Send all transfers from the file, batch after batch.

Before anything is broadcast, the fee is estimated and the account balance
verified. A failed batch can be retried, skipped or can stop the whole run.
By default the operator is asked on the standard input. All transfers that
were not delivered are written to a CSV file that can be used to send them
again.
`)
		fl.PrintDefaults()
	}
	s := newSettings(fl)
	var (
		failedFl = fl.String("failed", "",
			"Path to the CSV file that undelivered transfers are written to. Defaults to the transfers file path with .failed.csv suffix.")
		onFailureFl = fl.String("on-failure", env("MULTISEND_ON_FAILURE", "ask"),
			"How to resolve a failed batch: ask, retry, skip or stop. You can use MULTISEND_ON_FAILURE environment variable to set it.")
		retriesFl = fl.Int("retries", 3,
			"When failed batches are retried without asking, maximum number of retries before the run is stopped.")
		yesFl = fl.Bool("yes", false,
			"Do not ask for a confirmation before sending.")
		explorerFl = fl.String("explorer", env("MULTISEND_EXPLORER", ""),
			"Block explorer transaction URL. Transaction hash replaces %s or is appended. You can use MULTISEND_EXPLORER environment variable to set it.")
		metricsFl = fl.String("metrics", env("MULTISEND_METRICS", ""),
			"Address to serve prometheus metrics on, ie. localhost:9100. Metrics are not served if empty. You can use MULTISEND_METRICS environment variable to set it.")
	)
	fl.Parse(args)

	if *s.file == "" {
		flagDie("transfers file is required, standard input is used for answers")
	}
	failedPath := *failedFl
	if failedPath == "" {
		failedPath = *s.file + ".failed.csv"
	}

	conf, err := s.config()
	if err != nil {
		return fmt.Errorf("invalid configuration: %s", err)
	}
	transfers, err := s.transfers(input)
	if err != nil {
		return err
	}
	term := newTerminal(input, output)
	maker, err := decisionMaker(*onFailureFl, *retriesFl, term)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)
		select {
		case <-sig:
			cancel()
		case <-ctx.Done():
		}
	}()

	logger := newLogger(*s.debug)
	metrics, stopMetrics, err := serveMetrics(*metricsFl, logger)
	if err != nil {
		return err
	}
	defer stopMetrics()

	signer, err := s.signer(ctx, logger)
	if err != nil {
		return err
	}
	msgs, err := transfer.EncodeAll(s.encoder(signer.Address()), transfers)
	if err != nil {
		return fmt.Errorf("cannot encode transfers: %s", err)
	}
	engine, err := multisend.NewEngine(conf,
		multisend.WithLogger(logger),
		multisend.WithNotifier(multisend.NewLogNotifier(logger)),
		multisend.WithMetrics(metrics),
		multisend.WithDecisionMaker(maker),
	)
	if err != nil {
		return err
	}

	funds, err := collectFunds(ctx, engine, signer, s.assetDenom(), conf.FeeDenom, transfers, msgs)
	if err != nil {
		return err
	}
	fmt.Fprintf(output, "Sending %s to %d recipients from %s in %d transactions.\n",
		s.asset(funds.Send), len(transfers), signer.Address(), multisend.BatchCount(len(msgs), conf.BatchSize))
	if funds.Fee != nil {
		fmt.Fprintf(output, "Estimated fee: %s\n", funds.Fee.Human(conf.FeeExponent, conf.FeeSymbol))
	}
	if err := reportAffordability(output, funds); err != nil {
		return err
	}
	if !*yesFl {
		switch ok, err := term.confirm(ctx, "Send?"); {
		case err != nil:
			return fmt.Errorf("no confirmation: %s", err)
		case !ok:
			fmt.Fprintln(output, "Aborted.")
			return nil
		}
	}

	report, err := engine.Dispatch(ctx, signer, msgs)
	if err != nil {
		return fmt.Errorf("cannot send: %s", err)
	}
	printReport(output, report, *explorerFl)

	undelivered := transfer.Undelivered(report, transfers)
	if len(undelivered) == 0 {
		fmt.Fprintf(output, "All %d transfers delivered.\n", len(transfers))
		return nil
	}
	if err := writeTransfers(failedPath, undelivered, *s.exponent); err != nil {
		return err
	}
	return fmt.Errorf("%d of %d transfers not delivered, written to %s", len(undelivered), len(transfers), failedPath)
}

// decisionMaker returns the resolver of failed batches for given policy.
func decisionMaker(policy string, retries int, term *terminal) (multisend.DecisionMaker, error) {
	if policy == "ask" {
		return term, nil
	}
	d, err := multisend.ParseDecision(policy)
	if err != nil {
		return nil, fmt.Errorf("invalid failure policy: %s", err)
	}
	if d == multisend.DecisionRetry {
		return multisend.RetryUpTo(retries, multisend.DecisionStop), nil
	}
	return multisend.Always(d), nil
}

// serveMetrics exposes dispatch metrics over HTTP. Metrics are collected
// but not exposed if the address is empty.
func serveMetrics(addr string, logger log.Logger) (*multisend.Metrics, func(), error) {
	if addr == "" {
		m, err := multisend.NewMetrics(nil)
		return m, func() {}, err
	}
	reg := prometheus.NewRegistry()
	m, err := multisend.NewMetrics(reg)
	if err != nil {
		return nil, nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server", "err", err)
		}
	}()
	return m, func() { srv.Close() }, nil
}

func printReport(output io.Writer, report *multisend.Report, explorer string) {
	for _, o := range report.Outcomes {
		if o.Success {
			fmt.Fprintf(output, "Batch #%d: delivered %s\n", o.BatchNumber, explorerLink(explorer, o.TxHash))
		} else {
			fmt.Fprintf(output, "Batch #%d: failed\n", o.BatchNumber)
		}
	}
	for _, b := range report.Remaining {
		fmt.Fprintf(output, "Batch #%d: not sent\n", b.Number)
	}
}

func writeTransfers(path string, transfers []transfer.Transfer, exponent uint) error {
	fd, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("cannot create failed transfers file: %s", err)
	}
	defer fd.Close()
	if err := transfer.WriteCSV(fd, transfers, exponent); err != nil {
		return err
	}
	if err := fd.Close(); err != nil {
		return fmt.Errorf("cannot close failed transfers file: %s", err)
	}
	return nil
}

// flagDie terminates the process with an invalid usage message.
func flagDie(description string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, description, args...)
	fmt.Fprintln(os.Stderr)
	os.Exit(2)
}
