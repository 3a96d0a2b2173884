package gtp

import (
	"bufio"
	"io"
	"strings"
	"sync"
	"time"
)

// CommandQueue is the unbounded FIFO buffer between the input reader and the
// session loop. Single producer, single consumer; FIFO order is the only
// guarantee. The protocol is half-duplex request/response, so a well-behaved
// client never builds meaningful backlog here.
type CommandQueue struct {
	mu    sync.Mutex
	ready *sync.Cond
	items []string
}

func NewCommandQueue() *CommandQueue {
	q := &CommandQueue{}
	q.ready = sync.NewCond(&q.mu)
	return q
}

// Push appends line at the tail.
func (q *CommandQueue) Push(line string) {
	q.mu.Lock()
	q.items = append(q.items, line)
	q.mu.Unlock()
	q.ready.Signal()
}

// PopBlocking removes and returns the head, blocking while the queue is
// empty.
func (q *CommandQueue) PopBlocking() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		q.ready.Wait()
	}
	head := q.items[0]
	q.items = q.items[1:]
	return head
}

func (q *CommandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// readEOFBackoff paces the degraded end-of-stream mode so it does not spin a
// core while the loop waits for a quit that may never come.
const readEOFBackoff = 10 * time.Millisecond

// ReadInput pumps raw lines from r into q for the life of the process. It
// never returns; session exit is driven solely by the quit command. After
// end-of-stream the reader keeps yielding empty lines, which the session
// loop treats as no-ops: an EOF without a preceding quit does not terminate
// the process.
func ReadInput(r io.Reader, q *CommandQueue) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		q.Push(strings.TrimRight(line, "\r\n"))
		if err != nil {
			time.Sleep(readEOFBackoff)
		}
	}
}
