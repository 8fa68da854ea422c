package gtree

import (
	"bytes"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	tr := newScalarTree(2)
	tr.SetSettings(Settings{
		SplitThreshold:  0.002,
		LeafReweighting: true,
		DoFiltering:     false,
		SecondMoment:    false,
	})

	for i := 0; i < 3000; i++ {
		tr.Splat(Vector{0.2, 0.2}, Float64(1), 1)
	}
	tr.Build()
	tr.Refine()
	tr.Build()

	var buf bytes.Buffer
	if _, err := tr.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	loaded := newScalarTree(2)
	if _, err := loaded.ReadFrom(&buf); err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}

	if loaded.NodeCount() != tr.NodeCount() {
		t.Fatalf("NodeCount() = %d, want %d", loaded.NodeCount(), tr.NodeCount())
	}
	if got, want := loaded.PDF(Vector{0.2, 0.2}), tr.PDF(Vector{0.2, 0.2}); got != want {
		t.Fatalf("PDF() = %v, want %v", got, want)
	}
}

func TestReadWithTagRejectsBadTag(t *testing.T) {
	tr := newScalarTree(2)
	var buf bytes.Buffer
	if _, err := tr.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	loaded := newScalarTree(2)
	if _, err := loaded.ReadWithTag(&buf); err == nil {
		t.Fatal("ReadWithTag: expected error reading an untagged stream, got nil")
	}
}

func TestWriteReadWithTagRoundTrip(t *testing.T) {
	tr := newScalarTree(2)
	for i := 0; i < 100; i++ {
		tr.Splat(Vector{0.5, 0.5}, Float64(2), 1)
	}
	tr.Build()

	var buf bytes.Buffer
	if _, err := tr.WriteWithTag(&buf); err != nil {
		t.Fatalf("WriteWithTag: %v", err)
	}

	loaded := newScalarTree(2)
	if _, err := loaded.ReadWithTag(&buf); err != nil {
		t.Fatalf("ReadWithTag: %v", err)
	}
	if got, want := loaded.Estimate(), tr.Estimate(); got != want {
		t.Fatalf("Estimate() = %v, want %v", got, want)
	}
}
