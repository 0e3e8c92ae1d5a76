package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iov-one/multisend/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threeTransfers = addr1 + ",1.5\n" + addr2 + ",2\n" + addr3 + ",0.25\n"

func TestEstimate(t *testing.T) {
	cases := map[string]struct {
		balance  string
		args     []string
		wantErr  *errors.Error
		wantOut  []string
		skipsOut []string
	}{
		"affordable": {
			balance: "10000000",
			wantOut: []string{
				"Transfers:   3\n",
				"Total:       3.75 ATOM\n",
				"Available:   10 ATOM\n",
				"Fee:         0.01 ATOM\n",
				"Ready to send.\n",
			},
			skipsOut: []string{"Fee balance:"},
		},
		"not enough for the fee": {
			balance: "3755000",
			wantErr: errors.ErrAmount,
			wantOut: []string{
				"Error: available balance is less than the amount required to send and estimated gas fee",
			},
		},
		"not enough to send": {
			balance: "1000000",
			wantErr: errors.ErrAmount,
			wantOut: []string{
				"Error: available balance is less than the amount required to send:",
			},
		},
		"unknown gas price": {
			balance: "10000000",
			args:    []string{"-gas-price", "0"},
			wantOut: []string{
				"Fee:         unknown\n",
				"Warning: affordability of fees cannot be verified",
			},
			skipsOut: []string{"Ready to send."},
		},
		"separate fee token": {
			balance: "10000000",
			args:    []string{"-fee-denom", "ustake", "-fee-symbol", "STAKE"},
			wantErr: errors.ErrAmount,
			wantOut: []string{
				"Fee:         0.01 STAKE\n",
				"Fee balance: 0 STAKE\n",
				"Error: available balance is less than estimated gas fee",
			},
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			node, dir, cleanup := setupNode(t)
			defer cleanup()
			node.balances["uatom"] = tc.balance

			args := append([]string{"-key", filepath.Join(dir, "key"), "-batch", "2"}, tc.args...)
			var out bytes.Buffer
			err := cmdEstimate(strings.NewReader(threeTransfers), &out, args)
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.True(t, tc.wantErr.Is(err), "unexpected error: %s", err)
			} else {
				require.NoError(t, err)
			}
			for _, s := range tc.wantOut {
				assert.Contains(t, out.String(), s)
			}
			for _, s := range tc.skipsOut {
				assert.NotContains(t, out.String(), s)
			}
			txs, _ := node.delivered()
			assert.Equal(t, 0, txs, "estimate must not broadcast")
		})
	}
}

func TestEstimateMissingKey(t *testing.T) {
	_, dir, cleanup := setupNode(t)
	defer cleanup()

	args := []string{"-key", filepath.Join(dir, "missing")}
	err := cmdEstimate(strings.NewReader(threeTransfers), &bytes.Buffer{}, args)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot load private key")
}

func TestEstimateContractToken(t *testing.T) {
	node, dir, cleanup := setupNode(t)
	defer cleanup()
	node.balances["uatom"] = "20000"
	node.balances["cw20:"+addr3] = "3750000"

	args := []string{
		"-key", filepath.Join(dir, "key"),
		"-batch", "2",
		"-contract", addr3,
		"-symbol", "TKN",
		"-fee-symbol", "ATOM",
		"-fee-denom", "uatom",
	}
	var out bytes.Buffer
	require.NoError(t, cmdEstimate(strings.NewReader(threeTransfers), &out, args))
	assert.Contains(t, out.String(), "Total:       3.75 TKN\n")
	assert.Contains(t, out.String(), "Fee:         0.01 ATOM\n")
	assert.Contains(t, out.String(), "Fee balance: 0.02 ATOM\n")
	assert.Contains(t, out.String(), "Ready to send.\n")
}
