package signal

import (
	"encoding/json"
	"time"

	"github.com/dkeye/Discuss/internal/core"
)

// handlePing answers an application-level ping. A client timestamp in "ts" is
// echoed back so the client can measure round trips over the signaling path.
func (ctl *SignalWSController) handlePing(c *WsSignalConn, data []byte) {
	var req struct {
		TS int64 `json:"ts"`
	}
	_ = json.Unmarshal(data, &req)
	ctl.sendJSON(c, core.PongMessage{
		Type:       core.MsgPong,
		TS:         req.TS,
		ServerTime: time.Now().UnixMilli(),
	})
}
