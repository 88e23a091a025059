package template

import "testing"

func TestCursorDrainsInOrder(t *testing.T) {
	src := []int{1, 2, 3}
	c := NewCursor(src)
	src[0] = 99
	if c.Len() != 3 || c.Total() != 3 || c.Empty() {
		t.Fatalf("unexpected fresh cursor: len=%d total=%d", c.Len(), c.Total())
	}
	v, ok := c.Peek()
	if !ok || *v != 1 {
		t.Fatalf("peek: got %v ok=%v (cursor must not alias its source)", v, ok)
	}
	for want := 1; want <= 3; want++ {
		v, ok := c.Next()
		if !ok || *v != want {
			t.Fatalf("next: got %v want %d", v, want)
		}
	}
	if !c.Empty() || c.Consumed() != 3 {
		t.Fatalf("expected drained cursor, consumed=%d", c.Consumed())
	}
	if _, ok := c.Next(); ok {
		t.Fatalf("expected no more items")
	}
}
