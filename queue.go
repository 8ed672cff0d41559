package rews

// messageQueue buffers outbound payloads issued while the connection is not
// usable. FIFO, unbounded, consumed only from the front. Owned exclusively by
// the Conn that holds it; access is serialized by the owner's mutex.
type messageQueue struct {
	items []Message
}

func newMessageQueue() *messageQueue {
	return &messageQueue{}
}

func (q *messageQueue) push(m Message) {
	q.items = append(q.items, m)
}

func (q *messageQueue) pop() (Message, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	m := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return m, true
}

func (q *messageQueue) len() int {
	return len(q.items)
}
