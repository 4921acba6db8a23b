package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	WriteWait  = 10 * time.Second
	PongWait   = 60 * time.Second
	PingPeriod = (PongWait * 9) / 10
	// MaxMessageSize bounds one client frame. The largest is a key event.
	MaxMessageSize = 1024
)

// WriteTyped sends a strongly-typed payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(WriteWait))
	return conn.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse.
func WriteError(conn *websocket.Conn, code, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Code:  code,
		Error: errMsg,
	})
}

// WritePing sends a control ping.
func WritePing(conn *websocket.Conn) error {
	_ = conn.SetWriteDeadline(time.Now().Add(WriteWait))
	return conn.WriteMessage(websocket.PingMessage, nil)
}

// PrepareRead applies the read limit and extends the deadline on every pong.
func PrepareRead(conn *websocket.Conn) {
	conn.SetReadLimit(MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(PongWait))
	})
}

// ReadRequest reads and decodes one client frame. Any frame extends the
// read deadline.
func ReadRequest(conn *websocket.Conn) (Request, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return Request{}, err
	}
	_ = conn.SetReadDeadline(time.Now().Add(PongWait))
	return Decode(data)
}
