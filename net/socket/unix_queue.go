package socket

import (
	"sync"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/sched"
)

// unixRecord is one queued AF_UNIX payload plus the name of the endpoint
// that sent it (spec §8's socketpair scenario requires recvfrom-style
// provenance even for the connected case).
type unixRecord struct {
	data []byte
	from string
}

// unixQueue is the in-kernel packet queue spec §4.10 describes AF_UNIX
// as implementing its socket contract over. For SOCK_DGRAM each push is
// a distinct record popped whole — record boundaries are preserved, as
// spec §8 testable property 7 requires — while SOCK_STREAM callers use
// popStream, which reads from the oldest record only and splits it
// across reads when the buffer is short; one read never spans records.
type unixQueue struct {
	mu      sync.Mutex
	records []unixRecord
	waiters *sched.WaitQueue
	sched   *sched.Scheduler
}

func newUnixQueue(scheduler *sched.Scheduler) *unixQueue {
	return &unixQueue{waiters: sched.NewWaitQueue(), sched: scheduler}
}

func (q *unixQueue) push(rec unixRecord) {
	q.mu.Lock()
	q.records = append(q.records, rec)
	q.mu.Unlock()
	if q.sched != nil {
		q.sched.WakeUp(q.waiters)
	}
}

// popRecord removes and returns the oldest whole record, for SOCK_DGRAM.
func (q *unixQueue) popRecord() (unixRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.records) == 0 {
		return unixRecord{}, errdefs.Unavailable(errWouldBlock)
	}
	rec := q.records[0]
	q.records = q.records[1:]
	return rec, nil
}

// popStream copies from the oldest record into buf, for SOCK_STREAM; a
// record only partially consumed keeps its remainder at the queue head.
func (q *unixQueue) popStream(buf []byte) (int, string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.records) == 0 {
		return 0, "", errdefs.Unavailable(errWouldBlock)
	}
	rec := q.records[0]
	n := copy(buf, rec.data)
	if n < len(rec.data) {
		q.records[0] = unixRecord{data: rec.data[n:], from: rec.from}
	} else {
		q.records = q.records[1:]
	}
	return n, rec.from, nil
}
