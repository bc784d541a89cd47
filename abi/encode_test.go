package abi

import (
	"encoding/hex"
	"math/big"
	"strings"
	"testing"
)

// classicVectorRoot builds the parameter list for f(uint256,uint32[],bytes10,bytes),
// the worked example from the canonical Solidity ABI encoding specification.
func classicVectorRoot(t *testing.T) *typeNode {
	t.Helper()
	root, err := parseParameterList([]Field{
		{Name: "a", Type: "uint256"},
		{Name: "b", Type: "uint32[]"},
		{Name: "c", Type: "bytes10"},
		{Name: "d", Type: "bytes"},
	})
	if err != nil {
		t.Fatalf("parseParameterList: %v", err)
	}
	return root
}

func classicVectorParams() map[string]any {
	return map[string]any{
		"a": big.NewInt(0x123),
		"b": []any{big.NewInt(0x456), big.NewInt(0x789)},
		"c": "0x31323334353637383930",
		"d": "0x48656c6c6f2c20776f726c6421",
	}
}

const classicVectorWant = "" +
	"0000000000000000000000000000000000000000000000000000000000000123" +
	"0000000000000000000000000000000000000000000000000000000000000080" +
	"3132333435363738393000000000000000000000000000000000000000000000" +
	"00000000000000000000000000000000000000000000000000000000000000e0" +
	"0000000000000000000000000000000000000000000000000000000000000002" +
	"0000000000000000000000000000000000000000000000000000000000000456" +
	"0000000000000000000000000000000000000000000000000000000000000789" +
	"000000000000000000000000000000000000000000000000000000000000000d" +
	"48656c6c6f2c20776f726c642100000000000000000000000000000000000000"

func TestEncodeClassicVector(t *testing.T) {
	root := classicVectorRoot(t)
	got, err := encode(root, classicVectorParams())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	gotHex := hex.EncodeToString(got)
	if gotHex != classicVectorWant {
		t.Errorf("encode mismatch:\n got  %s\n want %s", gotHex, classicVectorWant)
	}
}

func TestEncodeTransferArgs(t *testing.T) {
	root, err := parseParameterList([]Field{
		{Name: "to", Type: "address"},
		{Name: "amount", Type: "uint256"},
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := encode(root, map[string]any{
		"to":     "0x0000000000000000000000000000000000000001",
		"amount": big.NewInt(1000),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 bytes for two static slots, got %d", len(got))
	}
	gotHex := hex.EncodeToString(got)
	wantTail := "00000000000000000000000000000000000000000000000000000000000003e8"
	if !strings.HasSuffix(gotHex, wantTail) {
		t.Errorf("amount slot = %s, want suffix %s", gotHex, wantTail)
	}
}

func TestEncodeSignedNegativeOne(t *testing.T) {
	root, err := parseParameterList([]Field{{Name: "x", Type: "int256"}})
	if err != nil {
		t.Fatal(err)
	}
	got, err := encode(root, map[string]any{"x": big.NewInt(-1)})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	wantHex := strings.Repeat("f", 64)
	if hex.EncodeToString(got) != wantHex {
		t.Errorf("encode(-1) = %x, want all-f word", got)
	}
}

func TestEncodeRejectsWrongArgCount(t *testing.T) {
	c, err := Parse([]byte(`[{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]}]`))
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.EncodeFunctionData("transfer", []any{"0x0000000000000000000000000000000000000001"})
	if err == nil {
		t.Error("expected error for missing argument")
	}
}
