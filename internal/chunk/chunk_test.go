package chunk

import (
	"testing"

	"emo/internal/value"
)

func TestGetLineRunLength(t *testing.T) {
	c := New()
	c.WriteOp(OpPop, 1)
	c.WriteOp(OpPop, 1)
	c.WriteOp(OpPop, 2)
	c.WriteOp(OpReturn, 3)

	tests := []struct {
		offset int
		want   int
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 3},
	}
	for _, tt := range tests {
		if got := c.GetLine(tt.offset); got != tt.want {
			t.Errorf("GetLine(%d) = %d, want %d", tt.offset, got, tt.want)
		}
	}
}

func TestGetLinePastEndReturnsLastRun(t *testing.T) {
	c := New()
	c.WriteOp(OpReturn, 5)
	if got := c.GetLine(99); got != 5 {
		t.Errorf("GetLine(99) = %d, want 5 (last run)", got)
	}
}

func TestWriteConstantShortEncoding(t *testing.T) {
	c := New()
	c.WriteConstant(value.Number(1), 1)

	if len(c.Code) != 2 {
		t.Fatalf("expected 2 bytes (op + idx8), got %d", len(c.Code))
	}
	if OpCode(c.Code[0]) != OpConstant {
		t.Errorf("expected OpConstant, got %s", OpCode(c.Code[0]))
	}
	if c.Code[1] != 0 {
		t.Errorf("expected index 0, got %d", c.Code[1])
	}
}

func TestWriteConstantLongEncoding(t *testing.T) {
	c := New()
	for i := 0; i < 256; i++ {
		c.AddConstant(value.Number(float64(i)))
	}
	c.WriteConstant(value.Number(999), 1)

	if OpCode(c.Code[0]) != OpConstantLong {
		t.Fatalf("expected OpConstantLong once pool exceeds 256, got %s", OpCode(c.Code[0]))
	}
	idx := int(c.Code[1]) | int(c.Code[2])<<8 | int(c.Code[3])<<16
	if idx != 256 {
		t.Errorf("expected 24-bit index 256, got %d", idx)
	}
}

func TestAddConstantReturnsIndex(t *testing.T) {
	c := New()
	i0 := c.AddConstant(value.Number(1))
	i1 := c.AddConstant(value.Number(2))
	if i0 != 0 || i1 != 1 {
		t.Errorf("expected sequential indices 0,1; got %d,%d", i0, i1)
	}
}
