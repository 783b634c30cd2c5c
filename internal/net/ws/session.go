package ws

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds how long a single frame write may stall before the
// connection is treated as dead.
const writeWait = 10 * time.Second

// Session wraps a websocket connection behind the room subscriber contract:
// serialized writes with a deadline, an idempotent close, and the last
// acknowledged command sequence for duplicate suppression.
type Session struct {
	conn     *websocket.Conn
	writeMu  sync.Mutex
	lastSeq  atomic.Uint64
	closeOne sync.Once
}

// NewSession adopts an upgraded connection.
func NewSession(conn *websocket.Conn) *Session {
	return &Session{conn: conn}
}

// Send writes one text frame. The broadcast fanout and the read pump both
// write here; the lock serializes them and the deadline keeps a stalled
// peer from wedging either.
func (s *Session) Send(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a best-effort close frame carrying the reason and tears the
// connection down. Later calls are no-ops.
func (s *Session) Close(reason string) {
	s.closeOne.Do(func() {
		message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		s.writeMu.Lock()
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		s.conn.WriteMessage(websocket.CloseMessage, message)
		s.writeMu.Unlock()
		s.conn.Close()
	})
}

// LastCommandSeq returns the highest command sequence acknowledged on this
// session.
func (s *Session) LastCommandSeq() uint64 { return s.lastSeq.Load() }

// StoreLastCommandSeq records an acknowledged command sequence.
func (s *Session) StoreLastCommandSeq(seq uint64) { s.lastSeq.Store(seq) }
