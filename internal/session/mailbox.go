package session

import "sync"

// mailbox is the command queue between any number of producers and the
// session loop: unbounded and ordered, so producers never block and commands
// reach the loop in enqueue order. A pump goroutine drains the backlog into
// an ordinary channel the loop can select on.
type mailbox struct {
	mu      sync.Mutex
	backlog []command
	signal  chan struct{}
	out     chan command
	done    chan struct{}
	once    sync.Once
}

func newMailbox() *mailbox {
	m := &mailbox{
		signal: make(chan struct{}, 1),
		out:    make(chan command),
		done:   make(chan struct{}),
	}
	go m.pump()
	return m
}

// put enqueues without ever blocking the producer.
func (m *mailbox) put(c command) {
	m.mu.Lock()
	m.backlog = append(m.backlog, c)
	m.mu.Unlock()
	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// C is the consumer side for the loop's select.
func (m *mailbox) C() <-chan command { return m.out }

func (m *mailbox) close() {
	m.once.Do(func() { close(m.done) })
}

func (m *mailbox) pump() {
	for {
		m.mu.Lock()
		if len(m.backlog) == 0 {
			m.mu.Unlock()
			select {
			case <-m.signal:
				continue
			case <-m.done:
				return
			}
		}
		c := m.backlog[0]
		m.backlog = m.backlog[1:]
		m.mu.Unlock()

		select {
		case m.out <- c:
		case <-m.done:
			return
		}
	}
}
