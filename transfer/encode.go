package transfer

import (
	"encoding/json"
	"fmt"

	"github.com/iov-one/multisend"
	"github.com/iov-one/multisend/coin"
	"github.com/iov-one/multisend/errors"
	amino "github.com/tendermint/go-amino"
)

const (
	// SendPath routes a native token transfer.
	SendPath = "bank/send"
	// ExecutePath routes a smart contract execution.
	ExecutePath = "wasm/execute"
)

var cdc = amino.NewCodec()

func init() {
	cdc.RegisterConcrete(&SendMsg{}, "multisend/SendMsg", nil)
	cdc.RegisterConcrete(&ExecuteMsg{}, "multisend/ExecuteMsg", nil)
}

// SendMsg moves native tokens from one account to another.
type SendMsg struct {
	From   string
	To     string
	Amount []Amount
}

// Amount is a raw amount of a single denomination, as a decimal string.
type Amount struct {
	Denom  string
	Amount string
}

// ExecuteMsg executes a smart contract. Msg is the JSON encoded contract
// message.
type ExecuteMsg struct {
	Sender   string
	Contract string
	Msg      []byte
}

// cw20Execute is the execute message of a cw20 token contract.
type cw20Execute struct {
	Transfer *cw20Transfer `json:"transfer,omitempty"`
}

type cw20Transfer struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

// Encoder creates the message that executes a transfer.
type Encoder interface {
	Encode(t Transfer) (multisend.Message, error)
}

// NativeEncoder encodes transfers of a native token.
type NativeEncoder struct {
	Sender string
	Denom  string
}

var _ Encoder = NativeEncoder{}

// Encode returns a bank send message.
func (e NativeEncoder) Encode(t Transfer) (multisend.Message, error) {
	if !coin.IsDenom(e.Denom) {
		return multisend.Message{}, errors.Wrapf(errors.ErrInput, "invalid denom %q", e.Denom)
	}
	msg := &SendMsg{
		From: e.Sender,
		To:   t.Recipient,
		Amount: []Amount{
			{Denom: e.Denom, Amount: coin.FormatRaw(t.Amount)},
		},
	}
	bz, err := cdc.MarshalBinaryBare(msg)
	if err != nil {
		return multisend.Message{}, errors.Wrapf(errors.ErrInput, "marshal: %s", err)
	}
	return multisend.Message{ID: t.ID, Path: SendPath, Value: bz}, nil
}

// ContractEncoder encodes transfers of a cw20 token.
type ContractEncoder struct {
	Sender   string
	Contract string
}

var _ Encoder = ContractEncoder{}

// Encode returns a contract execution of a cw20 transfer.
func (e ContractEncoder) Encode(t Transfer) (multisend.Message, error) {
	if e.Contract == "" {
		return multisend.Message{}, errors.Wrap(errors.ErrEmpty, "contract")
	}
	raw, err := json.Marshal(cw20Execute{
		Transfer: &cw20Transfer{
			Recipient: t.Recipient,
			Amount:    coin.FormatRaw(t.Amount),
		},
	})
	if err != nil {
		return multisend.Message{}, errors.Wrapf(errors.ErrInput, "cw20 message: %s", err)
	}
	bz, err := cdc.MarshalBinaryBare(&ExecuteMsg{
		Sender:   e.Sender,
		Contract: e.Contract,
		Msg:      raw,
	})
	if err != nil {
		return multisend.Message{}, errors.Wrapf(errors.ErrInput, "marshal: %s", err)
	}
	return multisend.Message{ID: t.ID, Path: ExecutePath, Value: bz}, nil
}

// EncodeAll returns a message for every transfer. Messages carry the IDs of
// the transfers they were created from.
func EncodeAll(enc Encoder, transfers []Transfer) ([]multisend.Message, error) {
	msgs := make([]multisend.Message, 0, len(transfers))
	var errs error
	for _, t := range transfers {
		m, err := enc.Encode(t)
		if err != nil {
			errs = errors.AppendField(errs, fmt.Sprintf("Transfer.%d", t.ID), err)
			continue
		}
		msgs = append(msgs, m)
	}
	if errs != nil {
		return nil, errs
	}
	return msgs, nil
}

// DecodeSendMsg loads a message created by NativeEncoder.
func DecodeSendMsg(raw []byte) (*SendMsg, error) {
	var msg SendMsg
	if err := cdc.UnmarshalBinaryBare(raw, &msg); err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "unmarshal: %s", err)
	}
	return &msg, nil
}

// DecodeExecuteMsg loads a message created by ContractEncoder.
func DecodeExecuteMsg(raw []byte) (*ExecuteMsg, error) {
	var msg ExecuteMsg
	if err := cdc.UnmarshalBinaryBare(raw, &msg); err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "unmarshal: %s", err)
	}
	return &msg, nil
}
