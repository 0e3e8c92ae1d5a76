package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/iov-one/multisend/client"
)

func cmdKeygen(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Generate a new private key.

When successful a new file with hex encoded private key is created. This
command fails if the private key file already exists.

The key is random unless a master seed is given, in which case it is derived
using the bip44 path.
`)
		fl.PrintDefaults()
	}
	var (
		keyPathFl = fl.String("key", env("MULTISEND_PRIV_KEY", os.Getenv("HOME")+"/.multisend.priv.key"),
			"Path to the private key file that transactions should be signed with. You can use MULTISEND_PRIV_KEY environment variable to set it.")
		prefixFl = fl.String("prefix", env("MULTISEND_PREFIX", "cosmos"),
			"Bech32 prefix of the printed address. You can use MULTISEND_PREFIX environment variable to set it.")
		seedFl = fl.String("seed", "",
			"Hex encoded master seed to derive the key from.")
		pathFl = fl.String("derivation", "m/44'/118'/0'",
			"Bip44 derivation path used with the master seed. Only hardened indexes are supported.")
	)
	fl.Parse(args)

	key, err := newKey(*seedFl, *pathFl)
	if err != nil {
		return err
	}
	// Never overwrite an existing key. User must manually delete it first
	// to ensure we do not lose such crucial data by an accident.
	if err := client.SavePrivateKey(key, *keyPathFl, false); err != nil {
		return fmt.Errorf("cannot save private key: %s", err)
	}
	addr, err := key.Address().Bech32(*prefixFl)
	if err != nil {
		return fmt.Errorf("cannot serialize address: %s", err)
	}
	_, err = fmt.Fprintln(output, addr)
	return err
}

func newKey(hexSeed, path string) (*client.PrivateKey, error) {
	if hexSeed == "" {
		key, err := client.GenPrivateKey()
		if err != nil {
			return nil, fmt.Errorf("cannot generate key: %s", err)
		}
		return key, nil
	}
	seed, err := hex.DecodeString(hexSeed)
	if err != nil {
		return nil, fmt.Errorf("cannot decode seed: %s", err)
	}
	key, err := client.DerivePrivateKey(seed, path)
	if err != nil {
		return nil, fmt.Errorf("cannot derive key: %s", err)
	}
	return key, nil
}

func cmdKeyaddr(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Print out a bech32 address associated with your private key.
`)
		fl.PrintDefaults()
	}
	var (
		keyPathFl = fl.String("key", env("MULTISEND_PRIV_KEY", os.Getenv("HOME")+"/.multisend.priv.key"),
			"Path to the private key file that transactions should be signed with. You can use MULTISEND_PRIV_KEY environment variable to set it.")
		prefixFl = fl.String("prefix", env("MULTISEND_PREFIX", "cosmos"),
			"Bech32 prefix of the printed address. You can use MULTISEND_PREFIX environment variable to set it.")
	)
	fl.Parse(args)

	key, err := client.LoadPrivateKey(*keyPathFl)
	if err != nil {
		return fmt.Errorf("cannot load private key: %s", err)
	}
	addr, err := key.Address().Bech32(*prefixFl)
	if err != nil {
		return fmt.Errorf("cannot serialize address: %s", err)
	}
	_, err = fmt.Fprintln(output, addr)
	return err
}
