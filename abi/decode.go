package abi

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/example/ethrpc/hexutil"
)

var signBoundary = new(big.Int).Lsh(big.NewInt(1), 255)

// decodeState walks a byte buffer with three primitives mirroring the
// recursive-descent decoder this package is modeled on: consume reads a
// fixed span, followPointer jumps to a pointer target and restores the
// cursor afterward, and newOffsetBasis reslices the buffer so that
// position 0 becomes "here" for the duration of a nested call. Dynamic
// pointers are always relative to the innermost enclosing offset basis,
// never to the start of the whole message.
type decodeState struct {
	buf []byte
	pos int
}

func (d *decodeState) consume(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.buf) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrBufferUnderrun, n, d.pos, len(d.buf))
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decodeState) followPointer(fn func() (any, error)) (any, error) {
	raw, err := d.consume(32)
	if err != nil {
		return nil, err
	}
	ptr := new(big.Int).SetBytes(raw)
	if !ptr.IsInt64() || ptr.Int64() < 0 || ptr.Int64() > int64(len(d.buf)) {
		return nil, fmt.Errorf("%w: pointer %s exceeds buffer of length %d", ErrPointerOutOfRange, ptr, len(d.buf))
	}
	saved := d.pos
	d.pos = int(ptr.Int64())
	val, err := fn()
	d.pos = saved
	return val, err
}

func (d *decodeState) newOffsetBasis(fn func() (any, error)) (any, error) {
	savedBuf, savedPos := d.buf, d.pos
	d.buf = d.buf[d.pos:]
	d.pos = 0
	val, err := fn()
	d.buf, d.pos = savedBuf, savedPos
	return val, err
}

// decode parses data against node, the inverse of encode.
func decode(node *typeNode, data []byte) (any, error) {
	d := &decodeState{buf: data}
	val, err := d.newOffsetBasis(func() (any, error) {
		return d.process(node)
	})
	return val, err
}

func (d *decodeState) process(node *typeNode) (any, error) {
	if node.dynamic {
		return d.followPointer(func() (any, error) {
			return d.newOffsetBasis(func() (any, error) {
				return d.decodeBody(node)
			})
		})
	}
	return d.decodeBody(node)
}

func (d *decodeState) decodeBody(node *typeNode) (any, error) {
	switch {
	case node.arrayOf != nil:
		return d.decodeArray(node)
	case node.base == kindTuple:
		return d.decodeTuple(node)
	case node.base == kindString:
		raw, err := d.decodeDynamicBytes()
		if err != nil {
			return nil, err
		}
		return string(raw), nil
	case node.base == kindBytes && node.byteWidth == -1:
		raw, err := d.decodeDynamicBytes()
		if err != nil {
			return nil, err
		}
		return hexutil.Encode(raw), nil
	default:
		return d.decodeLeaf(node)
	}
}

func (d *decodeState) decodeDynamicBytes() ([]byte, error) {
	lenWord, err := d.consume(32)
	if err != nil {
		return nil, err
	}
	n := new(big.Int).SetBytes(lenWord)
	if !n.IsInt64() || n.Int64() < 0 || n.Int64() > int64(len(d.buf)-d.pos) {
		return nil, fmt.Errorf("%w: declared length %s exceeds remaining buffer", ErrBufferUnderrun, n)
	}
	length := int(n.Int64())
	raw, err := d.consume(length)
	if err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, raw)
	return out, nil
}

func (d *decodeState) decodeArray(node *typeNode) (any, error) {
	if node.fixedArraySize == -1 {
		lenWord, err := d.consume(32)
		if err != nil {
			return nil, err
		}
		n := new(big.Int).SetBytes(lenWord)
		if !n.IsInt64() || n.Int64() < 0 {
			return nil, fmt.Errorf("%w: bad array length %s", ErrBufferUnderrun, n)
		}
		count := int(n.Int64())
		return d.newOffsetBasis(func() (any, error) {
			items := make([]any, count)
			for i := 0; i < count; i++ {
				v, err := d.process(node.arrayOf)
				if err != nil {
					return nil, err
				}
				items[i] = v
			}
			return items, nil
		})
	}

	items := make([]any, node.fixedArraySize)
	for i := 0; i < node.fixedArraySize; i++ {
		v, err := d.process(node.arrayOf)
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	return items, nil
}

func (d *decodeState) decodeTuple(node *typeNode) (any, error) {
	out := make(map[string]any, len(node.components))
	for i, c := range node.components {
		v, err := d.process(c)
		if err != nil {
			return nil, err
		}
		key := c.fieldName
		if key == "" {
			key = strconv.Itoa(i)
		}
		out[key] = v
	}
	return out, nil
}

// decodeIndexedTopic recovers one indexed event parameter from its topic
// word. Static value types (address, boolean, sized integer, fixed
// bytes) are written directly into the topic by the encoder and are
// decoded through the same leaf path the body codec uses; dynamic types
// and composites (arrays, strings, bytes, tuples) are replaced by their
// keccak256 hash when indexed, which cannot be reversed, so the raw
// topic word is returned as hex instead.
func decodeIndexedTopic(node *typeNode, word [32]byte) (any, error) {
	if node.dynamic || node.arrayOf != nil || node.base == kindTuple {
		return hexutil.Encode(word[:]), nil
	}
	d := &decodeState{buf: word[:]}
	return d.decodeLeaf(node)
}

func (d *decodeState) decodeLeaf(node *typeNode) (any, error) {
	word, err := d.consume(32)
	if err != nil {
		return nil, err
	}
	switch node.base {
	case kindAddress:
		return hexutil.Encode(word[12:]), nil
	case kindBool:
		for _, b := range word {
			if b != 0 {
				return true, nil
			}
		}
		return false, nil
	case kindBytes:
		out := make([]byte, node.byteWidth)
		copy(out, word[:node.byteWidth])
		return hexutil.Encode(out), nil
	case kindUint:
		return new(big.Int).SetBytes(word).String(), nil
	case kindInt:
		n := new(big.Int).SetBytes(word)
		if n.Cmp(signBoundary) >= 0 {
			n.Sub(n, twoTo256)
		}
		return n.String(), nil
	default:
		return nil, fmt.Errorf("%w: unexpected leaf base %q", ErrValueShape, node.base)
	}
}
