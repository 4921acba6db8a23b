package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/proctor"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
	ws "github.com/stemsi/exstem-proctor/internal/websocket"
)

const (
	// sendBuffer holds events between the session actor and the socket writer.
	sendBuffer = 128
	// callTimeout bounds a single round-trip into the session actor.
	callTimeout = 5 * time.Second
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// StreamHandler connects a candidate's browser to its session actor.
type StreamHandler struct {
	registry *service.SessionRegistry
	operator *service.OperatorAuth
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(registry *service.SessionRegistry, operator *service.OperatorAuth, log zerolog.Logger, allowedOrigins []string) *StreamHandler {
	return &StreamHandler{
		registry: registry,
		operator: operator,
		log:      log.With().Str("component", "stream_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/sessions/:session_id/stream?token=
// Relays surface events and commands to the session, and session events back.
func (h *StreamHandler) SessionStream(c *gin.Context) {
	id, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	session, err := h.registry.Get(id)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	sc := &streamConn{
		conn:    conn,
		session: session,
		auth:    h.operator,
		out:     make(chan any, sendBuffer),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		log:     h.log.With().Str("session_id", id.String()).Logger(),
	}
	sc.serve()
}

// streamConn is one WebSocket attached to one session. All socket writes
// go through out so there is a single writer.
type streamConn struct {
	conn    *websocket.Conn
	session *proctor.Session
	auth    *service.OperatorAuth
	out     chan any
	done    chan struct{} // closed when the read loop exits
	stopped chan struct{} // closed when the writer exits
	slow    sync.Once
	log     zerolog.Logger
}

func (sc *streamConn) serve() {
	defer sc.conn.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sc.writePump()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	detach, err := sc.session.Attach(ctx, sc.enqueue)
	cancel()
	if err != nil {
		sc.send(ws.ErrorResponse{Event: ws.EventError, Code: string(response.ErrSessionClosed), Error: err.Error()})
		close(sc.done)
		wg.Wait()
		return
	}

	sc.log.Info().Msg("Candidate connected")
	sc.readPump()
	detach()
	close(sc.done)
	wg.Wait()
	sc.log.Info().Msg("Candidate disconnected")
}

// enqueue runs on the session actor and must never block. A client that
// cannot keep up is disconnected and will get a fresh state on reconnect.
func (sc *streamConn) enqueue(ev proctor.Event) {
	select {
	case sc.out <- ev:
	default:
		sc.slow.Do(func() {
			sc.log.Warn().Msg("Client too slow, closing stream")
			_ = sc.conn.Close()
		})
	}
}

// send queues a reply from the read loop.
func (sc *streamConn) send(v any) {
	select {
	case sc.out <- v:
	case <-sc.done:
	case <-sc.stopped:
	}
}

func (sc *streamConn) sendError(code response.ErrCode) {
	sc.send(ws.ErrorResponse{Event: ws.EventError, Code: string(code), Error: response.GetMessage(code)})
}

func (sc *streamConn) writePump() {
	defer close(sc.stopped)
	ticker := time.NewTicker(ws.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case v := <-sc.out:
			if err := ws.WriteTyped(sc.conn, v); err != nil {
				sc.log.Debug().Err(err).Msg("Write failed")
				_ = sc.conn.Close()
				return
			}
		case <-ticker.C:
			if err := ws.WritePing(sc.conn); err != nil {
				_ = sc.conn.Close()
				return
			}
		case <-sc.done:
			// Flush what the actor already produced, e.g. the final submitted event.
			for {
				select {
				case v := <-sc.out:
					if err := ws.WriteTyped(sc.conn, v); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (sc *streamConn) readPump() {
	ws.PrepareRead(sc.conn)
	for {
		req, err := ws.ReadRequest(sc.conn)
		if errors.Is(err, ws.ErrMalformed) {
			sc.sendError(response.ErrInvalidPayload)
			continue
		}
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				sc.log.Warn().Err(err).Msg("Unexpected close")
			} else {
				sc.log.Debug().Err(err).Msg("Connection closed")
			}
			return
		}
		sc.handle(req)
	}
}

func (sc *streamConn) handle(req ws.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	switch {
	case req.Action == ws.ActionPing:
		sc.send(ws.PongResponse{Event: ws.EventPong})
		return
	case req.Action == ws.ActionState:
		snap, err := sc.session.Snapshot(ctx)
		if err != nil {
			sc.fail(err)
			return
		}
		sc.send(proctor.Event{Type: proctor.EventState, State: snap.State, Session: &snap})
		return
	case req.Action == ws.ActionOperatorExit:
		sc.operatorExit(ctx, req.Passcode)
		return
	case req.IsInput():
		out, err := sc.session.Observe(ctx, req.Input())
		if err != nil {
			sc.fail(err)
			return
		}
		if out.OperatorPrompt {
			sc.send(proctor.Event{Type: proctor.EventOperatorPrompt})
		}
		if out.Disposition == proctor.DispositionSuppressed {
			sc.send(proctor.Event{Type: proctor.EventSuppressed, Input: describeInput(req)})
		}
		return
	}

	sig, ok, err := req.Signal()
	if !ok {
		sc.sendError(response.ErrUnknownAction)
		return
	}
	if err != nil {
		sc.send(ws.ErrorResponse{Event: ws.EventError, Code: string(response.ErrValidation), Error: err.Error()})
		return
	}
	if err := sc.session.Dispatch(ctx, sig); err != nil {
		sc.fail(err)
	}
}

func (sc *streamConn) operatorExit(ctx context.Context, passcode string) {
	if sc.auth == nil || !sc.auth.Enabled() {
		sc.sendError(response.ErrOperatorDisabled)
		return
	}
	if passcode == "" {
		sc.sendError(response.ErrPasscodeRequired)
		return
	}
	if err := sc.auth.Verify(passcode); err != nil {
		sc.log.Warn().Msg("Operator exit with wrong passcode")
		sc.sendError(response.ErrPasscodeInvalid)
		return
	}
	if err := sc.session.Dispatch(ctx, proctor.Signal{Kind: proctor.SigOperatorExit}); err != nil {
		sc.fail(err)
	}
}

func (sc *streamConn) fail(err error) {
	_, code := response.FromError(err)
	sc.sendError(code)
}

func describeInput(req ws.Request) string {
	in := req.Input()
	if in.Kind == proctor.InputKey {
		return in.Key.String()
	}
	if in.Kind == proctor.InputClipboard && in.Clipboard != "" {
		return in.Clipboard
	}
	return string(in.Kind)
}
