package cluster

import (
	"math"
	"testing"
)

func TestEncodeDecodeRoundtrip(t *testing.T) {
	tests := []struct {
		name string
		vec  []float32
	}{
		{"simple", []float32{1.0, 2.0, 3.0}},
		{"negative", []float32{-1.0, -0.5, 0.0, 0.5, 1.0}},
		{"large values", []float32{1e10, -1e10, 3.14159}},
		{"embedding sized", make([]float32, 1536)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := EncodeVector(tt.vec)
			if len(encoded) != 4*len(tt.vec) {
				t.Fatalf("expected %d bytes, got %d", 4*len(tt.vec), len(encoded))
			}
			decoded, err := DecodeVector(encoded)
			if err != nil {
				t.Fatalf("DecodeVector failed: %v", err)
			}
			if len(decoded) != len(tt.vec) {
				t.Fatalf("length mismatch: expected %d, got %d", len(tt.vec), len(decoded))
			}
			for i := range tt.vec {
				if tt.vec[i] != decoded[i] {
					t.Errorf("value mismatch at index %d: expected %f, got %f", i, tt.vec[i], decoded[i])
				}
			}
		})
	}
}

func TestEncodeIsLittleEndian(t *testing.T) {
	got := EncodeVector([]float32{1.0})
	want := []byte{0x00, 0x00, 0x80, 0x3f}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected % x, got % x", want, got)
		}
	}
}

func TestDecodeSpecialValues(t *testing.T) {
	decoded, err := DecodeVector(EncodeVector([]float32{float32(math.Inf(1)), float32(math.NaN())}))
	if err != nil {
		t.Fatalf("DecodeVector failed: %v", err)
	}
	if !math.IsInf(float64(decoded[0]), 1) {
		t.Errorf("expected +Inf, got %f", decoded[0])
	}
	if !math.IsNaN(float64(decoded[1])) {
		t.Errorf("expected NaN, got %f", decoded[1])
	}
}

func TestDecodeInvalidLength(t *testing.T) {
	if _, err := DecodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated blob")
	}
	v, err := DecodeVector(nil)
	if err != nil || v != nil {
		t.Errorf("expected nil vector for empty blob, got %v, %v", v, err)
	}
}
