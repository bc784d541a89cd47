// Package abi implements the contract ABI codec: parsing a contract's
// JSON interface description into typed function and event descriptors,
// encoding call arguments to the 32-byte-slot wire format, and decoding
// call results and event logs back into Go values.
package abi

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/example/ethrpc/hexutil"
)

type entry struct {
	Type            string  `json:"type"`
	Name            string  `json:"name"`
	Inputs          []Field `json:"inputs"`
	Outputs         []Field `json:"outputs"`
	Anonymous       bool    `json:"anonymous,omitempty"`
	StateMutability string  `json:"stateMutability,omitempty"`
}

// Function describes one callable entry of a parsed contract.
type Function struct {
	Name      string
	Signature string
	Selector  [4]byte

	inputs  *typeNode
	outputs *typeNode
}

// Event describes one event entry of a parsed contract.
type Event struct {
	Name      string
	Signature string
	Topic0    [32]byte
	Anonymous bool

	indexed    []*typeNode
	nonIndexed *typeNode
}

// Contract is a parsed ABI: a set of functions keyed by name and
// selector, and a set of events keyed by name and topic-0.
type Contract struct {
	functions  map[string]*Function
	bySelector map[[4]byte]*Function
	events     map[string]*Event
	byTopic0   map[[32]byte]*Event
}

// Parse builds a Contract from a standard contract ABI JSON document (an
// array of function/event/constructor entries). Duplicate function or
// event names keep the first definition encountered and log a warning.
// Every event is also indexed by topic-0, which DecodeEvent uses, so
// overloaded events all decode. Functions are also indexed by selector
// internally, but the exported function methods look functions up by
// name only, so an overloaded function past the first definition cannot
// be encoded or decoded through this Contract.
func Parse(abiJSON []byte) (*Contract, error) {
	var entries []entry
	if err := json.Unmarshal(abiJSON, &entries); err != nil {
		return nil, fmt.Errorf("abi: parse contract json: %w", err)
	}

	c := &Contract{
		functions:  make(map[string]*Function),
		bySelector: make(map[[4]byte]*Function),
		events:     make(map[string]*Event),
		byTopic0:   make(map[[32]byte]*Event),
	}

	for _, e := range entries {
		switch e.Type {
		case "function":
			fn, err := buildFunction(e)
			if err != nil {
				return nil, fmt.Errorf("abi: function %q: %w", e.Name, err)
			}
			if _, exists := c.functions[fn.Name]; exists {
				log.Warn().Str("function", fn.Name).Msg("duplicate function name in abi, keeping first definition")
			} else {
				c.functions[fn.Name] = fn
			}
			c.bySelector[fn.Selector] = fn
		case "event":
			ev, err := buildEvent(e)
			if err != nil {
				return nil, fmt.Errorf("abi: event %q: %w", e.Name, err)
			}
			if _, exists := c.events[ev.Name]; exists {
				log.Warn().Str("event", ev.Name).Msg("duplicate event name in abi, keeping first definition")
			} else {
				c.events[ev.Name] = ev
			}
			c.byTopic0[ev.Topic0] = ev
		default:
			// constructor, fallback, receive, error: not part of the call/event surface.
		}
	}

	return c, nil
}

// fillPositionalNames assigns each unnamed top-level parameter its
// decimal index as a field name, so the tuple can be addressed as a
// map[string]any even when the ABI supplies no "name".
func fillPositionalNames(root *typeNode) {
	for i, c := range root.components {
		if c.fieldName == "" {
			c.fieldName = fmt.Sprintf("%d", i)
		}
	}
}

func buildFunction(e entry) (*Function, error) {
	inputs, err := parseParameterList(e.Inputs)
	if err != nil {
		return nil, err
	}
	fillPositionalNames(inputs)
	outputs, err := parseParameterList(e.Outputs)
	if err != nil {
		return nil, err
	}
	fillPositionalNames(outputs)

	sig := e.Name + inputs.signatureString()
	selector := hexutil.Keccak256([]byte(sig))

	fn := &Function{Name: e.Name, Signature: sig, inputs: inputs, outputs: outputs}
	copy(fn.Selector[:], selector[:4])
	return fn, nil
}

func buildEvent(e entry) (*Event, error) {
	indexedFields := make([]Field, 0, len(e.Inputs))
	nonIndexedFields := make([]Field, 0, len(e.Inputs))
	allTypes := make([]*typeNode, len(e.Inputs))

	for i, f := range e.Inputs {
		n, err := parseType(f)
		if err != nil {
			return nil, err
		}
		allTypes[i] = n
		if f.Indexed {
			indexedFields = append(indexedFields, f)
		} else {
			nonIndexedFields = append(nonIndexedFields, f)
		}
	}

	indexed := make([]*typeNode, len(indexedFields))
	for i, f := range indexedFields {
		n, err := parseType(f)
		if err != nil {
			return nil, err
		}
		indexed[i] = n
	}
	nonIndexed, err := parseParameterList(nonIndexedFields)
	if err != nil {
		return nil, err
	}

	sigParts := make([]string, len(allTypes))
	for i, n := range allTypes {
		sigParts[i] = n.signatureString()
	}
	sig := e.Name + "(" + joinComma(sigParts) + ")"
	topic0 := hexutil.Keccak256([]byte(sig))

	ev := &Event{Name: e.Name, Signature: sig, Anonymous: e.Anonymous, indexed: indexed, nonIndexed: nonIndexed}
	copy(ev.Topic0[:], topic0)
	return ev, nil
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}

// Functions returns every parsed function keyed by name.
func (c *Contract) Functions() map[string]*Function {
	out := make(map[string]*Function, len(c.functions))
	for k, v := range c.functions {
		out[k] = v
	}
	return out
}

// Events returns every parsed event keyed by name.
func (c *Contract) Events() map[string]*Event {
	out := make(map[string]*Event, len(c.events))
	for k, v := range c.events {
		out[k] = v
	}
	return out
}

// EncodeFunctionData builds the calldata for a function call: the 4-byte
// selector followed by the ABI-encoded argument tuple. args is a
// []any positional list matching the function's input order.
func (c *Contract) EncodeFunctionData(name string, args []any) ([]byte, error) {
	fn, ok := c.functions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}
	if len(args) != len(fn.inputs.components) {
		return nil, fmt.Errorf("%w: %q expects %d arguments, got %d", ErrValueShape, name, len(fn.inputs.components), len(args))
	}
	params := make(map[string]any, len(fn.inputs.components))
	for i, comp := range fn.inputs.components {
		params[comp.fieldName] = args[i]
	}
	body, err := encode(fn.inputs, params)
	if err != nil {
		return nil, fmt.Errorf("abi: encode call to %q: %w", name, err)
	}
	return append(fn.Selector[:], body...), nil
}

// DecodeFunctionResult decodes the raw return data of a call against the
// named function's output types, returning a map keyed by output name
// (or its positional index for unnamed outputs).
func (c *Contract) DecodeFunctionResult(name string, data []byte) (map[string]any, error) {
	fn, ok := c.functions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}
	val, err := decode(fn.outputs, data)
	if err != nil {
		return nil, fmt.Errorf("abi: decode result of %q: %w", name, err)
	}
	out, ok := val.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected decode shape for %q", ErrValueShape, name)
	}
	return out, nil
}

// DecodedLog is the result of decoding one event occurrence: indexed
// fields (recovered from their topic word when the field is a static
// value type, or left as the raw topic hex when it was hashed because
// the field is dynamic or composite) merged with the ABI-decoded
// non-indexed fields from the log data into one object keyed by field
// name.
type DecodedLog struct {
	Name   string
	Fields map[string]any
}

// DecodeEvent decodes one log entry by its topic-0 selector. topics must
// include topic-0 itself at index 0 (as returned by eth_getLogs/eth
// subscription notifications).
func (c *Contract) DecodeEvent(topics [][32]byte, data []byte) (*DecodedLog, error) {
	if len(topics) == 0 {
		return nil, fmt.Errorf("%w: no topics", ErrUnknownEvent)
	}
	ev, ok := c.byTopic0[topics[0]]
	if !ok {
		return nil, fmt.Errorf("%w: topic0 %s", ErrUnknownEvent, hexutil.Encode(topics[0][:]))
	}

	fields := make(map[string]any, len(ev.indexed))
	for i, n := range ev.indexed {
		if i+1 >= len(topics) {
			return nil, fmt.Errorf("%w: missing topic for indexed field %d", ErrBufferUnderrun, i)
		}
		key := n.fieldName
		if key == "" {
			key = fmt.Sprintf("%d", i)
		}
		v, err := decodeIndexedTopic(n, topics[i+1])
		if err != nil {
			return nil, fmt.Errorf("abi: decode indexed field %q of event %q: %w", key, ev.Name, err)
		}
		fields[key] = v
	}

	val, err := decode(ev.nonIndexed, data)
	if err != nil {
		return nil, fmt.Errorf("abi: decode event %q data: %w", ev.Name, err)
	}
	dataOut, ok := val.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected decode shape for event %q", ErrValueShape, ev.Name)
	}
	for k, v := range dataOut {
		fields[k] = v
	}

	return &DecodedLog{Name: ev.Name, Fields: fields}, nil
}
