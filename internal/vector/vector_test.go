package vector

import (
	"math"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	in := []float32{0.25, -1.5, 3, 0}
	out, err := Decode(Encode(in))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], in[i])
		}
	}
	if Encode(nil) != nil {
		t.Error("Encode(nil) should be nil")
	}
	if v, err := Decode(nil); err != nil || v != nil {
		t.Errorf("Decode(nil) = %v, %v", v, err)
	}
	if _, err := Decode([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated blob")
	}
}

func TestLiteral(t *testing.T) {
	s := Literal([]float32{0.5, -1, 2})
	if s != "[0.5,-1,2]" {
		t.Errorf("Literal = %q", s)
	}
	v, err := ParseLiteral(s)
	if err != nil {
		t.Fatalf("ParseLiteral: %v", err)
	}
	if len(v) != 3 || v[0] != 0.5 || v[1] != -1 || v[2] != 2 {
		t.Errorf("ParseLiteral = %v", v)
	}
	if _, err := ParseLiteral("0.5,1"); err == nil {
		t.Error("expected error without brackets")
	}
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 0},
		{"scaled", []float32{1, 1}, []float32{3, 3}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"length mismatch", []float32{1}, []float32{1, 0}, 2},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 2},
		{"empty", nil, nil, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineDistance(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("CosineDistance = %v, want %v", got, tt.want)
			}
		})
	}
}
