package server

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/canopy/pkg/controller"
	cerrors "github.com/matzehuels/canopy/pkg/errors"
	"github.com/matzehuels/canopy/pkg/observability"
	"github.com/matzehuels/canopy/pkg/render"
	"github.com/matzehuels/canopy/pkg/tree"
	"github.com/matzehuels/canopy/pkg/view"
)

const (
	wsReadLimit    = 4096
	wsWriteTimeout = 10 * time.Second
)

// Client message types.
const (
	msgClick       = "click"
	msgResize      = "resize"
	msgZoom        = "zoom"
	msgPan         = "pan"
	msgRecenter    = "recenter"
	msgExpandAll   = "expand_all"
	msgCollapseAll = "collapse_all"
)

// clientMessage is the incoming websocket message format.
type clientMessage struct {
	Type   string  `json:"type"`
	ID     string  `json:"id,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Factor float64 `json:"factor,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	DX     float64 `json:"dx,omitempty"`
	DY     float64 `json:"dy,omitempty"`
}

// event converts the message into a controller event.
func (m clientMessage) event() (controller.Event, error) {
	switch m.Type {
	case msgClick:
		if m.ID == "" {
			return nil, cerrors.New(cerrors.ErrCodeInvalidInput, "click without node id")
		}
		return controller.ClickEvent{ID: tree.ID(m.ID)}, nil
	case msgResize:
		return controller.ResizeEvent{Width: m.Width, Height: m.Height}, nil
	case msgZoom:
		if m.Factor <= 0 {
			return nil, cerrors.New(cerrors.ErrCodeInvalidInput, "zoom factor must be positive, got %v", m.Factor)
		}
		return controller.ZoomEvent{Factor: m.Factor, Focus: view.Point{X: m.X, Y: m.Y}}, nil
	case msgPan:
		return controller.PanEvent{DX: m.DX, DY: m.DY}, nil
	case msgRecenter:
		return controller.RecenterEvent{}, nil
	case msgExpandAll:
		return controller.ExpandAllEvent{}, nil
	case msgCollapseAll:
		return controller.CollapseAllEvent{}, nil
	}
	return nil, cerrors.New(cerrors.ErrCodeInvalidInput, "unknown message type %q", m.Type)
}

// handleWebSocket streams frames to one viewer and applies its
// interactions. The connection's writer is this goroutine; a second
// goroutine reads.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	ctx := r.Context()
	hooks := observability.Session()
	sess := s.sessions.open(r.RemoteAddr)
	hooks.OnConnect(ctx, sess.ID)
	s.logger.Debug("viewer connected", "session", sess.ID, "remote", sess.RemoteAddr)
	defer func() {
		s.sessions.close(sess.ID)
		hooks.OnDisconnect(ctx, sess.ID, sess.Age())
		s.logger.Debug("viewer disconnected", "session", sess.ID)
	}()

	sub := s.loop.Subscribe(sess.ID)
	defer sub.Close()

	errs := make(chan error, 4)
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		s.readMessages(ctx, conn, sub, errs)
	}()

	for {
		select {
		case f, ok := <-sub.C():
			if !ok {
				closeMsg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping")
				conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second))
				return
			}
			data, err := render.Encode(f)
			if err != nil {
				s.logger.Error("encode frame", "seq", f.Seq, "error", err)
				continue
			}
			if err := writeMessage(conn, data); err != nil {
				return
			}
		case err := <-errs:
			data, encErr := render.EncodeError(err)
			if encErr != nil {
				continue
			}
			if err := writeMessage(conn, data); err != nil {
				return
			}
		case <-readDone:
			return
		}
	}
}

// readMessages applies incoming interactions until the connection fails.
// Rejected interactions are reported back through errs. Events are sent
// through sub so link navigation only reaches this viewer.
func (s *Server) readMessages(ctx context.Context, conn *websocket.Conn, sub *controller.Subscription, errs chan<- error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read", "error", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			report(errs, cerrors.Wrap(cerrors.ErrCodeInvalidInput, err, "invalid message format"))
			continue
		}
		ev, err := msg.event()
		if err != nil {
			report(errs, err)
			continue
		}
		if _, err := sub.Send(ctx, ev); err != nil {
			report(errs, err)
		}
	}
}

// report queues err for the writer, dropping it if the queue is full.
func report(errs chan<- error, err error) {
	select {
	case errs <- err:
	default:
	}
}

func writeMessage(conn *websocket.Conn, data []byte) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}
