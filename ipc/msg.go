package ipc

import (
	"sync"

	"github.com/eric29200/nulix/errdefs"
	"github.com/eric29200/nulix/sched"
)

// Limits mirroring MSGMAX/MSGMNI/MSGMNB from the original kernel's
// ipc/msg.c.
const (
	MsgMax = 8192  // max bytes in a single message
	msgMNI = 128   // max number of queues system-wide
	msgMNB = 16384 // default max bytes queued per queue
)

// msgrcv search modes (convert_mode/testmsg in the original): which
// queued messages a given msgtyp/flags combination may return.
const (
	searchAny = iota
	searchEqual
	searchNotEqual
	searchLessEqual
)

// MsgExcept mirrors MSG_EXCEPT: with a positive msgtyp, return any
// message NOT of that type instead of requiring an exact match.
const MsgExcept = 0o20000

// Message is one queued System V message.
type Message struct {
	Type int64
	Text []byte
}

type msgQueue struct {
	mu       sync.Mutex
	perm     Perm
	messages []Message
	cbytes   int
	qbytes   int // max bytes allowed on the queue (q_qbytes)
	waiters  *sched.WaitQueue
}

// MsgGet implements msgget: look up key, or create a new queue when
// FlagCreat is set and no queue is registered for it (key == IPCPrivate
// always creates fresh, per IPC_PRIVATE semantics).
func (n *Namespace) MsgGet(key int, perm Perm, flags int) (int, error) {
	if key != IPCPrivate {
		if id, ok := n.msgIDs.lookupByKey(key); ok {
			if flags&FlagCreat != 0 && flags&FlagExcl != 0 {
				return 0, errdefs.Conflict(errExists)
			}
			return id, nil
		}
		if flags&FlagCreat == 0 {
			return 0, errdefs.NotFound(errNoEntry)
		}
	}

	q := &msgQueue{perm: perm, qbytes: msgMNB, waiters: sched.NewWaitQueue()}
	perm.Key = key
	q.perm = perm
	return n.msgIDs.add(key, q)
}

func (n *Namespace) msgQueue(id int) (*msgQueue, error) {
	obj := n.msgIDs.get(id)
	if obj == nil {
		return nil, errdefs.NotFound(errStaleID)
	}
	return obj.(*msgQueue), nil
}

// MsgSend implements msgsnd. A queue at its byte limit refuses the send:
// with FlagNoWait set this is an immediate error; otherwise it follows
// this tree's one-shot blocking contract — the caller gets
// errdefs.Unavailable and MsgQueueWaiters to park a retry on,
// standing in for the original's sleep_on(&msq->q_wait) retry loop.
func (n *Namespace) MsgSend(id int, msgType int64, text []byte, flags int) error {
	if msgType < 1 {
		return errdefs.InvalidParameter(errBadMsgType)
	}
	if len(text) > MsgMax {
		return errdefs.InvalidParameter(errTooBig)
	}

	q, err := n.msgQueue(id)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cbytes+len(text) > q.qbytes {
		// Both FlagNoWait and the blocking path return the same error
		// kind here: MsgQueueWaiters gives a blocking caller something
		// to park on and retry, where a NOWAIT caller simply reports it.
		return errdefs.Unavailable(errQueueFull)
	}

	q.messages = append(q.messages, Message{Type: msgType, Text: append([]byte(nil), text...)})
	q.cbytes += len(text)
	n.sched.WakeUp(q.waiters)
	return nil
}

// MsgQueueWaiters exposes the wait queue a blocked MsgSend (queue full)
// or MsgReceive (no matching message) should park on before retrying.
func (n *Namespace) MsgQueueWaiters(id int) (*sched.WaitQueue, error) {
	q, err := n.msgQueue(id)
	if err != nil {
		return nil, err
	}
	return q.waiters, nil
}

func convertMode(msgTyp int64, flags int) (mode int, searchTyp int64) {
	switch {
	case msgTyp == 0:
		return searchAny, 0
	case msgTyp < 0:
		return searchLessEqual, -msgTyp
	case flags&MsgExcept != 0:
		return searchNotEqual, msgTyp
	default:
		return searchEqual, msgTyp
	}
}

func testMessage(m Message, typ int64, mode int) bool {
	switch mode {
	case searchAny:
		return true
	case searchEqual:
		return m.Type == typ
	case searchNotEqual:
		return m.Type != typ
	case searchLessEqual:
		return m.Type <= typ
	}
	return false
}

// MsgReceive implements msgrcv: maxSize bounds how much text the caller
// accepts (E2BIG unless MSG_NOERROR-style truncation is requested via
// noError), msgTyp selects which queued message per convertMode/testMessage
// (0 = oldest of any type, >0 = exact type match unless MsgExcept is set,
// <0 = lowest type <= |msgTyp|, preferring the lowest).
func (n *Namespace) MsgReceive(id int, msgTyp int64, maxSize int, flags int, noError bool) (Message, error) {
	mode, typ := convertMode(msgTyp, flags)

	q, err := n.msgQueue(id)
	if err != nil {
		return Message{}, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	idx := -1
	for i, m := range q.messages {
		if !testMessage(m, typ, mode) {
			continue
		}
		if mode == searchLessEqual && m.Type != 1 {
			idx = i
			typ = m.Type - 1
			continue
		}
		idx = i
		break
	}

	if idx == -1 {
		return Message{}, errdefs.Unavailable(errNoMessage)
	}

	msg := q.messages[idx]
	if len(msg.Text) > maxSize && !noError {
		return Message{}, errdefs.InvalidParameter(errTooBig)
	}
	if len(msg.Text) > maxSize {
		msg.Text = msg.Text[:maxSize]
	}

	q.messages = append(q.messages[:idx], q.messages[idx+1:]...)
	q.cbytes -= len(msg.Text)
	n.sched.WakeUp(q.waiters)
	return msg, nil
}

// MsgRemove implements the IPC_RMID command of msgctl: deregister the
// queue and wake anyone still parked on it so a retried MsgSend/MsgReceive
// observes the now-stale id.
func (n *Namespace) MsgRemove(id int) error {
	obj := n.msgIDs.remove(id)
	if obj == nil {
		return errdefs.NotFound(errStaleID)
	}
	q := obj.(*msgQueue)
	n.sched.WakeUp(q.waiters)
	return nil
}

// MsgStat implements the IPC_STAT command of msgctl.
func (n *Namespace) MsgStat(id int) (Perm, int, int, error) {
	q, err := n.msgQueue(id)
	if err != nil {
		return Perm{}, 0, 0, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.perm, len(q.messages), q.cbytes, nil
}

// MsgSetQueueBytes implements the IPC_SET command of msgctl, adjusting
// the queue's byte limit (q_qbytes).
func (n *Namespace) MsgSetQueueBytes(id int, qbytes int) error {
	q, err := n.msgQueue(id)
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.qbytes = qbytes
	return nil
}
