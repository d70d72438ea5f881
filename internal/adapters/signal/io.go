package signal

import (
	"context"
	"time"

	"github.com/dkeye/Rendezvous/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, sid domain.ConnID, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		ctl.Orch.Registry.Unregister(sid)
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("sid", string(sid)).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Str("sid", string(sid)).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.cfg.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.cfg.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("writePump ping error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(sid domain.ConnID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Orch.Registry.Unregister(sid)
	}()

	extend := func() error {
		ctl.Orch.Registry.Touch(sid)
		return c.conn.SetReadDeadline(time.Now().Add(ctl.cfg.PongWait))
	}
	_ = extend()
	c.conn.SetPongHandler(func(string) error { return extend() })

	violations := 0
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
			}
			return
		}
		_ = extend()

		if !ctl.limiter.Allow(sid) {
			ctl.fail(sid, ErrRateLimited)
			continue
		}

		msg, err := ParseMessage(data)
		if err != nil {
			violations++
			log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Int("violations", violations).Msg("bad message")
			ctl.fail(sid, err)
			if limit := ctl.cfg.MaxProtocolErrors; limit > 0 && violations >= limit {
				c.closeWith(websocket.CloseProtocolError, "too many malformed messages", ctl.cfg.WriteWait)
				return
			}
			continue
		}
		violations = 0
		ctl.dispatch(sid, msg)
	}
}

func (ctl *SignalWSController) dispatch(sid domain.ConnID, msg Message) {
	switch msg.Kind {
	case KindJoin:
		ctl.handleJoin(sid, msg)
	case KindRoleAnnounce:
		ctl.handleRoleAnnounce(sid, msg)
	case KindLeave:
		ctl.handleLeave(sid)
	case KindSignal:
		ctl.handleRelay(sid, msg)
	case KindPing:
		ctl.handlePing(sid)
	case KindWhoAmI:
		ctl.handleWhoAmI(sid)
	default:
		log.Warn().Str("module", "signal").Str("kind", string(msg.Kind)).Msg("unknown signal")
	}
}

func (ctl *SignalWSController) sendEvent(sid domain.ConnID, ev domain.Event) {
	if err := ctl.Orch.Lifecycle.Send(sid, ev); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("event", string(ev.Type)).Msg("send event")
	}
}

func (ctl *SignalWSController) fail(sid domain.ConnID, err error) {
	ctl.sendEvent(sid, domain.Failure(codeFor(err), err))
}
