package abi

import (
	"encoding/hex"
	"math/big"
	"reflect"
	"testing"
)

func TestDecodeClassicVector(t *testing.T) {
	root := classicVectorRoot(t)
	raw, err := hex.DecodeString(classicVectorWant)
	if err != nil {
		t.Fatal(err)
	}
	val, err := decode(root, raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	m, ok := val.(map[string]any)
	if !ok {
		t.Fatalf("expected map[string]any, got %T", val)
	}

	if a, ok := m["a"].(string); !ok || a != big.NewInt(0x123).String() {
		t.Errorf("a = %v, want %s", m["a"], big.NewInt(0x123))
	}

	b, ok := m["b"].([]any)
	if !ok || len(b) != 2 {
		t.Fatalf("b = %v, want 2-element slice", m["b"])
	}
	if b0, ok := b[0].(string); !ok || b0 != big.NewInt(0x456).String() {
		t.Errorf("b[0] = %v, want %s", b[0], big.NewInt(0x456))
	}
	if b1, ok := b[1].(string); !ok || b1 != big.NewInt(0x789).String() {
		t.Errorf("b[1] = %v, want %s", b[1], big.NewInt(0x789))
	}

	if c, ok := m["c"].(string); !ok || c != "0x31323334353637383930" {
		t.Errorf("c = %v, want 0x31323334353637383930", m["c"])
	}
	if d, ok := m["d"].(string); !ok || d != "0x48656c6c6f2c20776f726c6421" {
		t.Errorf("d = %v, want hello world hex", m["d"])
	}
}

func TestEncodeDecodeRoundTripNestedDynamicArray(t *testing.T) {
	root, err := parseParameterList([]Field{{Name: "matrix", Type: "uint256[][]"}})
	if err != nil {
		t.Fatal(err)
	}
	input := map[string]any{
		"matrix": []any{
			[]any{big.NewInt(1), big.NewInt(2)},
			[]any{big.NewInt(3)},
		},
	}
	raw, err := encode(root, input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	val, err := decode(root, raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	m := val.(map[string]any)
	rows := m["matrix"].([]any)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	row0 := rows[0].([]any)
	if len(row0) != 2 || row0[0].(string) != "1" || row0[1].(string) != "2" {
		t.Errorf("row0 = %v, want [1 2]", row0)
	}
	row1 := rows[1].([]any)
	if len(row1) != 1 || row1[0].(string) != "3" {
		t.Errorf("row1 = %v, want [3]", row1)
	}
}

func TestDecodeUintMax(t *testing.T) {
	root, err := parseParameterList([]Field{{Name: "x", Type: "uint256"}})
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := hex.DecodeString("ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")
	val, err := decode(root, raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)).String()
	got := val.(map[string]any)["x"].(string)
	if got != want {
		t.Errorf("decode uint max = %s, want %s", got, want)
	}
}

func TestDecodeIntNegativeOne(t *testing.T) {
	root, err := parseParameterList([]Field{{Name: "x", Type: "int256"}})
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := hex.DecodeString("ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")
	val, err := decode(root, raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := val.(map[string]any)["x"].(string)
	if got != "-1" {
		t.Errorf("decode int256(-1) = %s, want -1", got)
	}
}

func TestDecodeTruncatedBufferErrors(t *testing.T) {
	root, err := parseParameterList([]Field{{Name: "x", Type: "string"}})
	if err != nil {
		t.Fatal(err)
	}
	_, err = decode(root, []byte{0x00})
	if err == nil {
		t.Error("expected underrun error on truncated buffer")
	}
}

func TestEncodeDecodeBoolAndAddress(t *testing.T) {
	root, err := parseParameterList([]Field{
		{Name: "ok", Type: "bool"},
		{Name: "who", Type: "address"},
	})
	if err != nil {
		t.Fatal(err)
	}
	in := map[string]any{"ok": true, "who": "0x00000000000000000000000000000000000000ab"}
	raw, err := encode(root, in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	val, err := decode(root, raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	m := val.(map[string]any)
	if !reflect.DeepEqual(m["ok"], true) {
		t.Errorf("ok = %v, want true", m["ok"])
	}
	if m["who"] != "0x00000000000000000000000000000000000000ab" {
		t.Errorf("who = %v", m["who"])
	}
}
