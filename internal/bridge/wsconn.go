package bridge

import (
	"github.com/gorilla/websocket"

	"github.com/BuddhimaZ/twilio-agent/internal/telephony"
)

// wsTelephonyConn adapts a websocket connection accepted from the
// telephony provider to the TelephonyConn interface.
type wsTelephonyConn struct {
	ws *websocket.Conn
}

// NewTelephonyConn wraps an accepted media-stream websocket.
func NewTelephonyConn(ws *websocket.Conn) TelephonyConn {
	return &wsTelephonyConn{ws: ws}
}

func (c *wsTelephonyConn) ReadFrame() (*telephony.Frame, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	return telephony.ParseFrame(data)
}

func (c *wsTelephonyConn) WriteFrame(frame *telephony.Frame) error {
	return c.ws.WriteJSON(frame)
}

func (c *wsTelephonyConn) Close() error {
	return c.ws.Close()
}
