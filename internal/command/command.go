package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/thatsimonsguy/brewfridge/internal/model"
)

// ErrMalformed marks a payload that cannot be acknowledged: unparseable or
// missing its id or command name.
var ErrMalformed = errors.New("malformed command")

type ValueKind int

const (
	ValueAbsent ValueKind = iota
	ValueNull
	ValueBool
	ValueNumber
	ValueOther
)

// Value is the optional command argument, classified strictly by JSON type.
type Value struct {
	Kind   ValueKind
	Bool   bool
	Number float64
}

type Command struct {
	ID    string
	Name  model.CommandName
	Value Value
}

type wireCommand struct {
	ID    *string         `json:"id"`
	Cmd   *string         `json:"cmd"`
	Value json.RawMessage `json:"value"`
}

func Parse(payload []byte) (Command, error) {
	var w wireCommand
	if err := json.Unmarshal(payload, &w); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if w.ID == nil || *w.ID == "" {
		return Command{}, fmt.Errorf("%w: missing id", ErrMalformed)
	}
	if w.Cmd == nil || *w.Cmd == "" {
		return Command{}, fmt.Errorf("%w: missing cmd", ErrMalformed)
	}

	return Command{
		ID:    *w.ID,
		Name:  model.CommandName(*w.Cmd),
		Value: classify(w.Value),
	}, nil
}

func classify(raw json.RawMessage) Value {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Value{Kind: ValueAbsent}
	}

	switch raw[0] {
	case 'n':
		return Value{Kind: ValueNull}
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			return Value{Kind: ValueBool, Bool: b}
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n float64
		if err := json.Unmarshal(raw, &n); err == nil {
			return Value{Kind: ValueNumber, Number: n}
		}
	}
	return Value{Kind: ValueOther}
}

// Ack is the wire acknowledgment. Error is null on success; Value is
// omitted unless the command echoes one.
type Ack struct {
	ID      string           `json:"id"`
	Cmd     string           `json:"cmd"`
	Success bool             `json:"success"`
	Error   *model.ErrorCode `json:"error"`
	Value   json.RawMessage  `json:"value,omitempty"`
	TS      int64            `json:"ts"`
}

func (a Ack) Encode() ([]byte, error) {
	return json.Marshal(a)
}

func okAck(cmd Command, ts int64, value json.RawMessage) *Ack {
	return &Ack{ID: cmd.ID, Cmd: string(cmd.Name), Success: true, Value: value, TS: ts}
}

func failAck(cmd Command, ts int64, code model.ErrorCode) *Ack {
	return &Ack{ID: cmd.ID, Cmd: string(cmd.Name), Success: false, Error: &code, TS: ts}
}

func boolValue(b bool) json.RawMessage {
	if b {
		return json.RawMessage("true")
	}
	return json.RawMessage("false")
}

func numberValue(n float64) json.RawMessage {
	out, _ := json.Marshal(n)
	return out
}

var nullValue = json.RawMessage("null")
