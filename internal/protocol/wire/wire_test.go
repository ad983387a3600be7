package wire

import "testing"

func TestRoundTripScalarTypes(t *testing.T) {
	cases := []interface{}{nil, true, false, uint64(42), "hello", []byte{1, 2, 3}}
	for _, c := range cases {
		b, err := Marshal(c)
		if err != nil {
			t.Fatalf("Marshal(%v): %v", c, err)
		}
		got, err := Unmarshal(b)
		if err != nil {
			t.Fatalf("Unmarshal(%v): %v", c, err)
		}
		switch want := c.(type) {
		case []byte:
			gb, ok := got.([]byte)
			if !ok || string(gb) != string(want) {
				t.Fatalf("bytes mismatch: got %v want %v", got, want)
			}
		default:
			if got != want {
				t.Fatalf("mismatch: got %v (%T) want %v (%T)", got, got, want, want)
			}
		}
	}
}

func TestEncodeAllDecodeAll(t *testing.T) {
	vals := []interface{}{uint64(1), "two", true, []byte("four")}
	b, err := EncodeAll(vals...)
	if err != nil {
		t.Fatalf("EncodeAll: %v", err)
	}
	got, err := DecodeAll(b)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if len(got) != len(vals) {
		t.Fatalf("length mismatch: got %d want %d", len(got), len(vals))
	}
}

func TestUnsupportedType(t *testing.T) {
	if _, err := Marshal(3.14); err == nil {
		t.Fatalf("expected error for unsupported float64 type")
	}
}

func TestWidensUintVariants(t *testing.T) {
	b, err := Marshal(uint32(7))
	if err != nil {
		t.Fatalf("Marshal uint32: %v", err)
	}
	got, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.(uint64) != 7 {
		t.Fatalf("expected widened uint64(7), got %v", got)
	}
}
