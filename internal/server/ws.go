package server

import (
	"context"
	"net/http"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/go-chi/chi/v5"

	"pairchess/internal/identity"
	"pairchess/internal/obslog"
	"pairchess/internal/room"
)

// handleGameSocket upgrades to a websocket and streams one frame per reduced
// game event, starting with a snapshot. The socket is write-only from the
// client's point of view; moves still go through the JSON endpoint. There is
// no replay: a reconnecting client gets a fresh snapshot and goes from there.
func (s *Server) handleGameSocket(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	participant := identity.FromContext(r.Context())

	// Join before the upgrade so claim failures surface as HTTP statuses.
	ctrl, err := room.Join(r.Context(), s.Store, s.Repo, code, participant)
	if err != nil {
		s.writeError(w, code, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.String("game_id", code), zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream aborted")

	// CloseRead cancels the context as soon as the client goes away.
	ctx := conn.CloseRead(r.Context())
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Subscribe before the snapshot goes out: anything committed after the
	// snapshot then arrives as an event instead of falling into a gap.
	if err := ctrl.Start(runCtx); err != nil {
		obslog.L().Warn("ws_stream_error", zap.String("game_id", code), zap.Error(err))
		return
	}

	if err := wsjson.Write(ctx, conn, ctrl.Snapshot()); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case upd, ok := <-ctrl.Updates():
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := wsjson.Write(ctx, conn, upd); err != nil {
				return
			}
		}
	}
}
