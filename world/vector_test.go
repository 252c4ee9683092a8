package world

import "testing"

func TestFlooredRoundsDown(t *testing.T) {
	tests := []struct {
		in   Floored
		want int32
	}{
		{0, 0},
		{0.99, 0},
		{1, 1},
		{-0.01, -1},
		{-1, -1},
		{-1.5, -2},
	}
	for _, tt := range tests {
		if got := tt.in.Int(); got != tt.want {
			t.Fatalf("Floored(%v).Int() = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestCoordsEqualityIsPerCell(t *testing.T) {
	a, b := NewCoords(3.2, 4.9, 0), NewCoords(3.8, 4.1, 0.5)
	if !a.Equal(b) || a.Key() != b.Key() {
		t.Fatalf("expected %v and %v to share a cell", a, b)
	}
	if a.Equal(NewCoords(4, 4, 0)) {
		t.Fatalf("expected different cells")
	}
}

func TestChunkOf(t *testing.T) {
	r := testRules()
	tests := []struct {
		pos  Coords
		want CCoords
	}{
		{NewCoords(0, 0, 0), CCoords{}},
		{NewCoords(63.9, 10, 50), CCoords{}},
		{NewCoords(64, 10, 0), CCoords{X: 1}},
		{NewCoords(130, 200, 0), CCoords{X: 2, Y: 3}},
		{NewCoords(-1, 0, 0), CCoords{X: -1}},
	}
	for _, tt := range tests {
		if got := r.ChunkOf(tt.pos); got != tt.want {
			t.Fatalf("ChunkOf(%v) = %v, want %v", tt.pos, got, tt.want)
		}
	}
}

func TestSnapKeepsHeight(t *testing.T) {
	got := NewCoords(70.5, 33.3, 7.25).Snap(16)
	if got != NewCoords(64, 32, 7.25) {
		t.Fatalf("unexpected snap %v", got)
	}
}

func TestIDAllocator(t *testing.T) {
	a := NewIDAllocator()
	first, second := a.Next(), a.Next()
	if first != allocatorBase || second != first+1 {
		t.Fatalf("expected consecutive ids from %d, got %d %d", allocatorBase, first, second)
	}
	a.Reserve(allocatorBase + 100)
	a.Reserve(allocatorBase + 5)
	if got := a.Next(); got != allocatorBase+101 {
		t.Fatalf("expected %d after reserve, got %d", allocatorBase+101, got)
	}
}
