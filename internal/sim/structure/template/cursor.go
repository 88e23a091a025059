package template

// Cursor walks an immutable slice front to back. Items before the cursor
// are consumed; the rest are pending.
type Cursor[T any] struct {
	items []T
	next  int
}

func NewCursor[T any](items []T) Cursor[T] {
	cp := make([]T, len(items))
	copy(cp, items)
	return Cursor[T]{items: cp}
}

func (c *Cursor[T]) Total() int { return len(c.items) }

func (c *Cursor[T]) Consumed() int { return c.next }

func (c *Cursor[T]) Len() int { return len(c.items) - c.next }

func (c *Cursor[T]) Empty() bool { return c.next >= len(c.items) }

// Peek returns the next pending item without consuming it.
func (c *Cursor[T]) Peek() (*T, bool) {
	if c.Empty() {
		return nil, false
	}
	return &c.items[c.next], true
}

// Next consumes and returns the next pending item.
func (c *Cursor[T]) Next() (*T, bool) {
	it, ok := c.Peek()
	if ok {
		c.next++
	}
	return it, ok
}

// All returns every item, consumed or not.
func (c *Cursor[T]) All() []T { return c.items }
