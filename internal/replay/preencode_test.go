package replay

import (
	"os"
	"path/filepath"
	"testing"
)

const fixtureLines = "A B 100 5 1 1000 1 7 0 0 0 0\nA B 101 3 2 1001 1 7 0 0 0 0\nC B 100 5 1 1002 1 7 0 0 0 0\n"

func TestPreencode_WritesReadableFrames(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.txt")
	output := filepath.Join(dir, "out.frames")

	if err := os.WriteFile(input, []byte(fixtureLines), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	stats, err := Preencode(input, output, 2)
	if err != nil {
		t.Fatalf("preencode: %v", err)
	}
	if stats.Messages != 3 {
		t.Fatalf("expected 3 messages, got %d", stats.Messages)
	}
	if stats.Batches != 2 {
		t.Fatalf("expected 2 batches (2+1), got %d", stats.Batches)
	}

	f, err := os.Open(output)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	var totalMsgs int
	for {
		payload, err := ReadFrame(f)
		if err != nil {
			break
		}
		batch, err := DecodeBatch(payload)
		if err != nil {
			t.Fatalf("decode batch: %v", err)
		}
		totalMsgs += len(batch.Msgs)
	}
	if totalMsgs != 3 {
		t.Fatalf("expected to read back 3 messages total, got %d", totalMsgs)
	}
}

func TestPreencode_MissingInput(t *testing.T) {
	dir := t.TempDir()
	if _, err := Preencode(filepath.Join(dir, "missing.txt"), filepath.Join(dir, "out.frames"), 10); err == nil {
		t.Fatal("expected error for missing input file")
	}
}
