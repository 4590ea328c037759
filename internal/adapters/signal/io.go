package signal

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/dkeye/Rendezvous/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *wsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.markClosed()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("conn", string(c.id)).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("writePump ping error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(c *wsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(c.id)).Msg("readPump closing")
		ctl.Orch.OnDisconnect(c)
		ctl.limiter.Forget(c.id)
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	})

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("readPump read error")
			}
			return
		}
		if mt != websocket.TextMessage {
			log.Debug().Str("module", "signal").Str("conn", string(c.id)).Int("message_type", mt).Msg("non-text frame ignored")
			continue
		}
		ctl.dispatch(c, data)
	}
}

// dispatch routes one inbound frame. Nothing it does can end the read loop.
func (ctl *SignalWSController) dispatch(conn core.SignalConnection, data []byte) {
	msg, err := core.ParseInbound(data)
	if err != nil {
		if errors.Is(err, core.ErrUnknownType) {
			log.Debug().Err(err).Str("module", "signal").Str("conn", string(conn.ID())).Msg("unknown signal")
			return
		}
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(conn.ID())).Msg("bad json")
		return
	}

	h, ok := ctl.handlers[msg.Kind()]
	if !ok {
		log.Debug().Str("module", "signal").Str("type", string(msg.Kind())).Msg("no handler")
		return
	}
	ctl.safeHandle(h, conn, msg)
}

func (ctl *SignalWSController) safeHandle(h handlerFunc, conn core.SignalConnection, msg core.Inbound) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("module", "signal").
				Str("conn", string(conn.ID())).
				Str("type", string(msg.Kind())).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("handler panic")
		}
	}()
	h(conn, msg)
}
