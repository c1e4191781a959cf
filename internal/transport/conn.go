package transport

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// WSConnection is the subset of *websocket.Conn the session package depends
// on, mirroring the teacher's wsConnection interface so session tests can
// substitute a fake connection without touching a real socket.
type WSConnection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	// Ping writes a control-frame ping, independent of the negotiated
	// text/binary frame type used for envelopes.
	Ping() error
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	RemoteAddr() string
}

// wsConn adapts *websocket.Conn to WSConnection, picking the frame opcode
// (Text for JSON, Binary for msgpack) matching the negotiated Codec.
type wsConn struct {
	conn      *websocket.Conn
	frameType int
}

// NewWSConnection wraps a live gorilla/websocket connection for the given
// wire format.
func NewWSConnection(conn *websocket.Conn, format Format) WSConnection {
	ft := websocket.TextMessage
	if format == FormatMsgpack {
		ft = websocket.BinaryMessage
	}
	return &wsConn{conn: conn, frameType: ft}
}

func (w *wsConn) ReadMessage() (int, []byte, error) { return w.conn.ReadMessage() }

func (w *wsConn) WriteMessage(_ int, data []byte) error {
	return w.conn.WriteMessage(w.frameType, data)
}

func (w *wsConn) Ping() error {
	return w.conn.WriteMessage(websocket.PingMessage, nil)
}

func (w *wsConn) Close() error { return w.conn.Close() }

func (w *wsConn) SetReadDeadline(t time.Time) error  { return w.conn.SetReadDeadline(t) }
func (w *wsConn) SetWriteDeadline(t time.Time) error { return w.conn.SetWriteDeadline(t) }
func (w *wsConn) SetReadLimit(limit int64)           { w.conn.SetReadLimit(limit) }

func (w *wsConn) SetPongHandler(h func(appData string) error) { w.conn.SetPongHandler(h) }

func (w *wsConn) RemoteAddr() string {
	if w.conn.RemoteAddr() == nil {
		return ""
	}
	return w.conn.RemoteAddr().String()
}

// Upgrader builds the gorilla/websocket upgrader the HTTP handler uses to
// promote an incoming request, with an origin check driven by config rather
// than the library's allow-all default.
func Upgrader(allowedOrigins []string, readBufferSize, writeBufferSize int) websocket.Upgrader {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return websocket.Upgrader{
		ReadBufferSize:  readBufferSize,
		WriteBufferSize: writeBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin := r.Header.Get("Origin")
			_, ok := allowed[origin]
			return ok
		},
	}
}
