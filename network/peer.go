package network

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/fasthttp/websocket"
)

// PeerID uniquely identifies a connected peer
type PeerID uint32

// Peer is one websocket session
// Only the write loop writes to the connection
type Peer struct {
	ID       PeerID
	Addr     string
	LastSeen atomic.Int64 // UnixNano

	conn *websocket.Conn

	// Send queue
	sendCh chan *Response

	// Lifecycle
	closeCh   chan struct{}
	closeOnce sync.Once
	done      chan struct{} // Closed when the write loop exits
}

func newPeer(id PeerID, conn *websocket.Conn, sendQueueSize int) *Peer {
	p := &Peer{
		ID:      id,
		Addr:    conn.RemoteAddr().String(),
		conn:    conn,
		sendCh:  make(chan *Response, sendQueueSize),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	p.LastSeen.Store(time.Now().UnixNano())
	return p
}

// Send queues a reply
// Returns false if the peer is closing or the queue is full
func (p *Peer) Send(resp *Response) bool {
	select {
	case <-p.closeCh:
		return false
	default:
	}

	select {
	case p.sendCh <- resp:
		return true
	default:
		return false
	}
}

// Close initiates shutdown, the write loop sends the close frame
func (p *Peer) Close() {
	p.closeOnce.Do(func() {
		close(p.closeCh)
	})
}

// readLoop reads messages until the connection fails or idles out
func (p *Peer) readLoop(idle time.Duration, handler func(*Peer, []byte)) {
	defer p.Close()

	for {
		select {
		case <-p.closeCh:
			return
		default:
		}
		if idle > 0 {
			_ = p.conn.SetReadDeadline(time.Now().Add(idle))
		}
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			return
		}

		p.LastSeen.Store(time.Now().UnixNano())
		handler(p, data)
	}
}

// writeLoop sends queued replies, closing the connection on exit
func (p *Peer) writeLoop(timeout time.Duration) {
	defer close(p.done)
	defer p.conn.Close()

	for {
		select {
		case <-p.closeCh:
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = p.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(timeout))
			// Unblock readLoop even if the transport ignores Close
			_ = p.conn.SetReadDeadline(time.Now())
			return
		case resp := <-p.sendCh:
			_ = p.conn.SetWriteDeadline(time.Now().Add(timeout))
			if err := p.conn.WriteJSON(resp); err != nil {
				p.Close()
				return
			}
		}
	}
}
