package sparsemat

import (
	"reflect"
	"testing"
)

func TestDenseMatTDotDense(t *testing.T) {
	// [[0, 1, 0],
	//  [2, 0, 0],
	//  [0, 0, 3]]
	m := NewDenseMat(3, 3)
	m.Set(0, 1, 1)
	m.Set(1, 0, 2)
	m.Set(2, 2, 3)

	got := m.TDotDense([]float32{1, 0, 2})
	want := []float32{0, 1, 6}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TDotDense() = %v, want %v", got, want)
	}

	mustPanic(t, "TDotDense with wrong dim", func() { m.TDotDense([]float32{1, 2}) })
}

func TestDenseMatTDotCsVec(t *testing.T) {
	m := NewDenseMat(3, 2)
	m.Set(0, 0, 1)
	m.Set(0, 1, 2)
	m.Set(2, 0, 3)
	m.Set(2, 1, 4)

	vec := NewSparseVec(3, []uint32{0, 2}, []float32{10, 100})
	got := m.TDotCsVec(vec)
	want := []float32{10*1 + 100*3, 10*2 + 100*4}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TDotCsVec() = %v, want %v", got, want)
	}

	// Dense and sparse inputs with the same content agree.
	dense := make([]float32, 3)
	DenseAddAssignCsVec(dense, vec)
	if byDense := m.TDotDense(dense); !reflect.DeepEqual(byDense, got) {
		t.Errorf("TDotDense() = %v, TDotCsVec() = %v", byDense, got)
	}
}

func TestDenseAddAssignCsVec(t *testing.T) {
	dense := []float32{1, 2, 3, 4, 5}
	vec := NewSparseVec(5, []uint32{1, 3}, []float32{6, 7})
	DenseAddAssignCsVec(dense, vec)
	want := []float32{1, 2 + 6, 3, 4 + 7, 5}
	if !reflect.DeepEqual(dense, want) {
		t.Errorf("DenseAddAssignCsVec() = %v, want %v", dense, want)
	}
}
