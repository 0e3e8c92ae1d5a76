package transfer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/holiman/uint256"
	"github.com/iov-one/multisend"
	"github.com/iov-one/multisend/coin"
	"github.com/iov-one/multisend/errors"
)

// Transfer is a single payment of the transferred asset.
type Transfer struct {
	ID        uint64
	Recipient string
	// Amount is in raw units of the asset.
	Amount *uint256.Int
}

// Validate returns an error if this transfer cannot be sent.
func (t Transfer) Validate(prefix string) error {
	var errs error
	errs = errors.AppendField(errs, "Recipient", ValidateAddress(t.Recipient, prefix))
	if t.Amount == nil || t.Amount.IsZero() {
		errs = errors.AppendField(errs, "Amount", errors.Wrap(errors.ErrAmount, "must not be zero"))
	}
	return errs
}

// ValidateAddress returns an error if given string is not a bech32 address
// with the expected prefix. An empty prefix accepts any.
func ValidateAddress(addr, prefix string) error {
	hrp, _, err := bech32.Decode(addr)
	if err != nil {
		return errors.Wrapf(errors.ErrInput, "invalid address %q: %s", addr, err)
	}
	if prefix != "" && hrp != prefix {
		return errors.Wrapf(errors.ErrInput, "unexpected prefix (expected: %s, actual: %s)", prefix, hrp)
	}
	return nil
}

// Options configures how the CSV content is interpreted.
type Options struct {
	// Prefix is the bech32 prefix every recipient address must use.
	Prefix string
	// Exponent is the decimal exponent of the transferred asset.
	Exponent uint
}

// ReadCSV reads all transfers from a CSV file. Each row must contain
// exactly two columns: the recipient address and the amount in display
// units. Empty lines are ignored. Amounts are rounded down to the asset
// precision and must not be zero.
//
// Rows are numbered by the line they start at, and that number becomes
// the transfer ID. All invalid rows are reported together as field errors
// named after the line number ("Row.3"). No transfer is returned if any row
// is invalid.
func ReadCSV(r io.Reader, opts Options) ([]Transfer, error) {
	rd := csv.NewReader(r)
	rd.FieldsPerRecord = -1
	rd.TrimLeadingSpace = true

	var (
		transfers []Transfer
		errs      error
	)
	for {
		row, err := rd.Read()
		switch err {
		case nil:
			// All good.
		case io.EOF:
			if errs != nil {
				return nil, errs
			}
			return transfers, nil
		default:
			return nil, errors.Wrapf(errors.ErrInput, "cannot read CSV row: %s", err)
		}

		// Blank lines are skipped by the reader, so the record index
		// does not match the line an operator sees.
		line, _ := rd.FieldPos(0)
		t, err := parseRow(row, opts)
		if err != nil {
			errs = errors.AppendField(errs, rowField(line), err)
			continue
		}
		t.ID = uint64(line)
		transfers = append(transfers, t)
	}
}

func rowField(line int) string {
	return fmt.Sprintf("Row.%d", line)
}

func parseRow(row []string, opts Options) (Transfer, error) {
	if len(row) != 2 {
		return Transfer{}, errors.Wrap(errors.ErrInput, "there must be exactly 2 columns")
	}
	addr := strings.TrimSpace(row[0])
	if addr == "" {
		return Transfer{}, errors.Wrap(errors.ErrEmpty, "address")
	}
	if err := ValidateAddress(addr, opts.Prefix); err != nil {
		return Transfer{}, err
	}
	amount, err := coin.ParseHuman(row[1], opts.Exponent)
	if err != nil {
		return Transfer{}, err
	}
	if amount.IsZero() {
		return Transfer{}, errors.Wrapf(errors.ErrAmount, "amount %q is zero at asset precision", strings.TrimSpace(row[1]))
	}
	return Transfer{Recipient: addr, Amount: amount}, nil
}

// WriteCSV writes transfers in the format accepted by ReadCSV, using the
// display units of an asset with given exponent.
func WriteCSV(w io.Writer, transfers []Transfer, exponent uint) error {
	wr := csv.NewWriter(w)
	for _, t := range transfers {
		if err := wr.Write([]string{t.Recipient, coin.Format(t.Amount, exponent)}); err != nil {
			return errors.Wrapf(errors.ErrInput, "write CSV: %s", err)
		}
	}
	wr.Flush()
	if err := wr.Error(); err != nil {
		return errors.Wrapf(errors.ErrInput, "write CSV: %s", err)
	}
	return nil
}

// Total returns the sum of all transfer amounts.
func Total(transfers []Transfer) (*uint256.Int, error) {
	total := new(uint256.Int)
	for _, t := range transfers {
		sum, err := coin.Add(total, t.Amount)
		if err != nil {
			return nil, errors.Wrapf(err, "transfer %d", t.ID)
		}
		total = sum
	}
	return total, nil
}

// Failed returns the transfers of all batches that were not delivered.
func Failed(r *multisend.Report, transfers []Transfer) []Transfer {
	var out []Transfer
	for _, t := range transfers {
		if r.IsFailed(t.ID) {
			out = append(out, t)
		}
	}
	return out
}

// Undelivered returns the transfers that must be sent again to complete the
// run: those of failed batches and of batches that were never attempted.
func Undelivered(r *multisend.Report, transfers []Transfer) []Transfer {
	return match(r.Undelivered(), transfers)
}

// match returns transfers with the IDs of given messages, in the order of
// the transfers.
func match(msgs []multisend.Message, transfers []Transfer) []Transfer {
	if len(msgs) == 0 {
		return nil
	}
	ids := make(map[uint64]struct{}, len(msgs))
	for _, m := range msgs {
		ids[m.ID] = struct{}{}
	}
	var out []Transfer
	for _, t := range transfers {
		if _, ok := ids[t.ID]; ok {
			out = append(out, t)
		}
	}
	return out
}
