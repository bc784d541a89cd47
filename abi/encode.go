package abi

import (
	"fmt"
	"math/big"

	"github.com/example/ethrpc/hexutil"
)

var twoTo256 = new(big.Int).Lsh(big.NewInt(1), 256)

// encoder accumulates the 32-byte-slot output and a FIFO of deferred
// tail-encoding tasks. The static pass runs first; each dynamic node
// defers its tail into the queue, and tails may themselves enqueue
// further tails for their own dynamic descendants. Draining the queue
// by index (rather than popping a dedicated queue type) is sufficient in
// Go because appending during the loop simply extends what len() sees
// on the next iteration.
type encoder struct {
	out   []byte
	tasks []func() error
}

// append writes data and right-pads it to the next 32-byte boundary.
func (e *encoder) append(data []byte) {
	e.out = append(e.out, data...)
	if r := len(data) % 32; r != 0 {
		e.out = append(e.out, make([]byte, 32-r)...)
	}
}

func leftPad32(b []byte) ([]byte, error) {
	if len(b) > 32 {
		return nil, fmt.Errorf("%w: value exceeds 256 bits", ErrValueShape)
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out, nil
}

// encode serializes value against node, returning a byte string whose
// length is always a multiple of 32.
func encode(node *typeNode, value any) ([]byte, error) {
	e := &encoder{}
	if err := e.process(node, value, 0); err != nil {
		return nil, err
	}
	for i := 0; i < len(e.tasks); i++ {
		if err := e.tasks[i](); err != nil {
			return nil, err
		}
	}
	return e.out, nil
}

// process lays down the head encoding of node at the current output
// position. offset is the basis that any dynamic descendant's pointer is
// measured from (the start of the enclosing tuple/array tail).
func (e *encoder) process(node *typeNode, value any, offset int) error {
	if node.dynamic {
		slot := len(e.out)
		e.append(make([]byte, 32)) // placeholder pointer slot

		task := func() error {
			ptr := big.NewInt(int64(len(e.out) - offset))
			ptrBytes, err := leftPad32(ptr.Bytes())
			if err != nil {
				return err
			}
			copy(e.out[slot:slot+32], ptrBytes)

			switch {
			case node.arrayOf != nil:
				items, err := toSlice(value)
				if err != nil {
					return err
				}
				if node.fixedArraySize == -1 {
					lenBytes, err := leftPad32(big.NewInt(int64(len(items))).Bytes())
					if err != nil {
						return err
					}
					e.append(lenBytes)
				}
				newOffset := len(e.out)
				for _, item := range items {
					if err := e.process(node.arrayOf, item, newOffset); err != nil {
						return err
					}
				}
				return nil
			case node.base == kindTuple:
				obj, err := toMap(value)
				if err != nil {
					return err
				}
				newOffset := len(e.out)
				for _, c := range node.components {
					if err := e.process(c, obj[c.fieldName], newOffset); err != nil {
						return err
					}
				}
				return nil
			case node.base == kindString:
				s, ok := value.(string)
				if !ok {
					return fmt.Errorf("%w: expected string for %q", ErrValueShape, node.fieldName)
				}
				raw := []byte(s)
				lenBytes, err := leftPad32(big.NewInt(int64(len(raw))).Bytes())
				if err != nil {
					return err
				}
				e.append(lenBytes)
				e.append(raw)
				return nil
			case node.base == kindBytes:
				s, ok := value.(string)
				if !ok {
					return fmt.Errorf("%w: expected hex string for %q", ErrValueShape, node.fieldName)
				}
				raw, err := hexutil.Decode(s)
				if err != nil {
					return fmt.Errorf("%w: %s", ErrValueShape, err)
				}
				lenBytes, err := leftPad32(big.NewInt(int64(len(raw))).Bytes())
				if err != nil {
					return err
				}
				e.append(lenBytes)
				e.append(raw)
				return nil
			default:
				return fmt.Errorf("%w: unexpected dynamic base %q", ErrValueShape, node.base)
			}
		}
		e.tasks = append(e.tasks, task)
		return nil
	}

	switch {
	case node.arrayOf != nil:
		items, err := toSlice(value)
		if err != nil {
			return err
		}
		if len(items) != node.fixedArraySize {
			return fmt.Errorf("%w: expected %d elements for %q, got %d", ErrValueShape, node.fixedArraySize, node.fieldName, len(items))
		}
		for _, item := range items {
			if err := e.process(node.arrayOf, item, offset); err != nil {
				return err
			}
		}
		return nil
	case node.base == kindTuple:
		obj, err := toMap(value)
		if err != nil {
			return err
		}
		for _, c := range node.components {
			if err := e.process(c, obj[c.fieldName], offset); err != nil {
				return err
			}
		}
		return nil
	case node.base == kindAddress:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: expected address string for %q", ErrValueShape, node.fieldName)
		}
		addr, err := hexutil.DecodeAddress(s)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrValueShape, err)
		}
		padded, err := leftPad32(addr[:])
		if err != nil {
			return err
		}
		e.append(padded)
		return nil
	case node.base == kindBool:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: expected bool for %q", ErrValueShape, node.fieldName)
		}
		n := int64(0)
		if b {
			n = 1
		}
		padded, err := leftPad32(big.NewInt(n).Bytes())
		if err != nil {
			return err
		}
		e.append(padded)
		return nil
	case node.base == kindBytes:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: expected hex string for %q", ErrValueShape, node.fieldName)
		}
		raw, err := hexutil.Decode(s)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrValueShape, err)
		}
		if len(raw) != node.byteWidth {
			return fmt.Errorf("%w: bad length for bytes%d: %s", ErrValueShape, node.byteWidth, s)
		}
		e.append(raw) // append right-pads to 32 automatically
		return nil
	case node.base == kindUint:
		n, err := toBigInt(value)
		if err != nil {
			return err
		}
		if n.Sign() < 0 {
			return fmt.Errorf("%w: negative value for uint %q", ErrValueShape, node.fieldName)
		}
		padded, err := leftPad32(n.Bytes())
		if err != nil {
			return err
		}
		e.append(padded)
		return nil
	case node.base == kindInt:
		n, err := toBigInt(value)
		if err != nil {
			return err
		}
		if n.Sign() < 0 {
			n = new(big.Int).Add(n, twoTo256)
		}
		padded, err := leftPad32(n.Bytes())
		if err != nil {
			return err
		}
		e.append(padded)
		return nil
	default:
		return fmt.Errorf("%w: unexpected base %q", ErrValueShape, node.base)
	}
}
