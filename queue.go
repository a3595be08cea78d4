package cache

// node is an element of insertion ordered queue.
type node[T any] struct {
	next  *node[T]
	prev  *node[T]
	value T
}

// queue keeps entries from newest (head) to oldest (tail).
type queue[T any] struct {
	head *node[T]
	tail *node[T]
	len  int
}

func (q *queue[T]) pushToFront(value T) *node[T] {
	n := &node[T]{value: value}
	q.len++

	if q.head == nil {
		q.head = n
		q.tail = n

		return n
	}

	n.next = q.head
	q.head.prev = n
	q.head = n

	return n
}

func (q *queue[T]) remove(n *node[T]) {
	if n == nil {
		return
	}

	if n.prev != nil {
		n.prev.next = n.next
	} else {
		q.head = n.next
	}

	if n.next != nil {
		n.next.prev = n.prev
	} else {
		q.tail = n.prev
	}

	n.next = nil
	n.prev = nil
	q.len--
}

// each iterates from oldest to newest until f returns false, f may remove visited node.
func (q *queue[T]) each(f func(n *node[T]) bool) {
	for n := q.tail; n != nil; {
		prev := n.prev

		if !f(n) {
			return
		}

		n = prev
	}
}
