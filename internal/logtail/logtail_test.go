package logtail

import (
	"fmt"
	"reflect"
	"testing"
)

func TestRing(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		add      int
		expected []string
	}{
		{name: "empty", size: 3, add: 0, expected: nil},
		{name: "partial", size: 5, add: 3, expected: []string{"Line 1", "Line 2", "Line 3"}},
		{name: "exact", size: 3, add: 3, expected: []string{"Line 1", "Line 2", "Line 3"}},
		{name: "wrapped", size: 3, add: 10, expected: []string{"Line 8", "Line 9", "Line 10"}},
		{name: "zero capacity", size: 0, add: 4, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ring := NewRing(tt.size)
			for i := 1; i <= tt.add; i++ {
				ring.Add(fmt.Sprintf("Line %d", i))
			}
			if got := ring.Lines(); !reflect.DeepEqual(got, tt.expected) {
				t.Fatalf("Lines() = %v, want %v", got, tt.expected)
			}
			if ring.Len() != len(tt.expected) {
				t.Fatalf("Len() = %d, want %d", ring.Len(), len(tt.expected))
			}
		})
	}
}

func TestRingAddNewSkipsRepeats(t *testing.T) {
	ring := NewRing(4)
	inputs := []string{"Loading", "Diffusing: 10%", "Diffusing: 10%\r\n", "  ", "Diffusing: 20%", "Loading"}
	var added int
	for _, line := range inputs {
		if ring.AddNew(line) {
			added++
		}
	}
	want := []string{"Loading", "Diffusing: 10%", "Diffusing: 20%", "Loading"}
	if got := ring.Lines(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Lines() = %v, want %v", got, want)
	}
	if added != 4 {
		t.Fatalf("added = %d, want 4", added)
	}
	last, ok := ring.Last()
	if !ok || last != "Loading" {
		t.Fatalf("Last() = %q, %v", last, ok)
	}
}

func TestRingLinesAreCopies(t *testing.T) {
	ring := NewRing(2)
	ring.Add("a")
	lines := ring.Lines()
	lines[0] = "mutated"
	if got := ring.Lines()[0]; got != "a" {
		t.Fatalf("Lines() exposed internal storage, got %q", got)
	}
}

func TestNilRing(t *testing.T) {
	var ring *Ring
	ring.Add("x")
	if ring.Len() != 0 || ring.Lines() != nil {
		t.Fatal("nil ring should be empty")
	}
	if _, ok := ring.Last(); ok {
		t.Fatal("nil ring should have no last line")
	}
}
