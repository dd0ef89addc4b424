package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"pairchess/internal/boardimg"
	"pairchess/internal/domain"
	"pairchess/internal/identity"
	"pairchess/internal/obslog"
	"pairchess/internal/room"
)

type moveRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

type moveResponse struct {
	Accepted bool         `json:"accepted"`
	Reason   string       `json:"reason,omitempty"`
	Message  string       `json:"message,omitempty"`
	Game     *domain.Game `json:"game,omitempty"`
}

type gameResponse struct {
	Game    *domain.Game `json:"game"`
	Role    domain.Role  `json:"role"`
	FEN     string       `json:"fen"`
	Message string       `json:"message,omitempty"`
}

type errorResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Retryable bool   `json:"retryable,omitempty"`
	} `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obslog.L().Warn("response_encode_error", zap.Error(err))
	}
}

// message renders a catalog entry, falling back to the built-in wording when
// the catalog is absent or the key fails to render.
func (s *Server) message(key, fallback string, data any) string {
	if s.Messages == nil {
		return fallback
	}
	msg, err := s.Messages.Render(key, data)
	if err != nil {
		return fallback
	}
	return msg
}

// writeError maps a domain error onto the wire: unknown games are 404,
// retryable conflicts are 409, everything else is a plain failure.
func (s *Server) writeError(w http.ResponseWriter, code string, err error) {
	var de domain.DomainError
	if !errors.As(err, &de) {
		obslog.L().Error("unhandled_error", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	status := http.StatusInternalServerError
	msg := de.Message
	switch {
	case errors.Is(err, domain.ErrGameNotFound):
		status = http.StatusNotFound
		msg = s.message("game.not_found", de.Message, map[string]string{"Code": code})
	case de.Retryable:
		status = http.StatusConflict
		key := "game.code_conflict"
		if errors.Is(err, domain.ErrStaleRecord) {
			key = "reject.stale"
		}
		msg = s.message(key, de.Message, nil)
	}

	var body errorResponse
	body.Error.Code = de.Code
	body.Error.Message = msg
	body.Error.Retryable = de.Retryable
	respondJSON(w, status, body)
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	participant := identity.FromContext(r.Context())
	g, err := room.Create(r.Context(), s.Store, s.Repo, participant, s.CodeLength, s.CreateAttempts)
	if err != nil {
		s.writeError(w, "", err)
		return
	}
	respondJSON(w, http.StatusCreated, gameResponse{
		Game:    g,
		Role:    domain.RoleWhite,
		FEN:     g.FEN,
		Message: s.message("game.created", "", map[string]string{"Code": g.ID}),
	})
}

// handleJoinGame is the fetch-and-claim read: loading a game by code is what
// assigns the viewer a role.
func (s *Server) handleJoinGame(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	participant := identity.FromContext(r.Context())

	ctrl, err := room.Join(r.Context(), s.Store, s.Repo, code, participant)
	if err != nil {
		s.writeError(w, code, err)
		return
	}
	snap := ctrl.Snapshot()

	var msg string
	switch snap.Role {
	case domain.RoleBlack:
		msg = s.message("game.joined_black", "", map[string]string{"Code": code})
	case domain.RoleSpectator:
		msg = s.message("game.joined_spectator", "", map[string]string{"Code": code})
	}
	respondJSON(w, http.StatusOK, gameResponse{Game: snap.Game, Role: snap.Role, FEN: snap.FEN, Message: msg})
}

func (s *Server) handleSubmitMove(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	participant := identity.FromContext(r.Context())

	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed move body", http.StatusBadRequest)
		return
	}
	req.From = strings.ToLower(strings.TrimSpace(req.From))
	req.To = strings.ToLower(strings.TrimSpace(req.To))
	if len(req.From) != 2 || len(req.To) != 2 {
		http.Error(w, "from and to must be squares like e2", http.StatusBadRequest)
		return
	}

	ctrl, err := room.Join(r.Context(), s.Store, s.Repo, code, participant)
	if err != nil {
		s.writeError(w, code, err)
		return
	}

	if _, err := ctrl.SubmitMove(r.Context(), req.From, req.To, req.Promotion); err != nil {
		var de domain.DomainError
		if errors.As(err, &de) && !de.Retryable && !errors.Is(err, domain.ErrGameNotFound) {
			// A rejected gesture is a normal outcome, not an HTTP error:
			// the client snaps the piece back and shows the notice.
			g := ctrl.Game()
			respondJSON(w, http.StatusOK, moveResponse{
				Reason:  de.Code,
				Message: s.message("reject."+de.Code, de.Message, map[string]string{"Code": code}),
				Game:    &g,
			})
			return
		}
		s.writeError(w, code, err)
		return
	}

	g := ctrl.Game()
	respondJSON(w, http.StatusOK, moveResponse{Accepted: true, Game: &g})
}

func (s *Server) handleLegalTargets(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	from := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("from")))
	if len(from) != 2 {
		http.Error(w, "from must be a square like e2", http.StatusBadRequest)
		return
	}

	ctrl, err := room.Join(r.Context(), s.Store, s.Repo, code, identity.FromContext(r.Context()))
	if err != nil {
		s.writeError(w, code, err)
		return
	}
	targets := ctrl.LegalTargets(from)
	if targets == nil {
		targets = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"from": from, "targets": targets})
}

func (s *Server) handleBoardPNG(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	g, err := s.Store.Get(r.Context(), code)
	if err != nil {
		s.writeError(w, code, err)
		return
	}

	opts := boardimg.Options{Size: intQuery(r, "size", 512)}
	if n := len(g.MovesUCI); n > 0 {
		last := g.MovesUCI[n-1]
		if len(last) >= 4 {
			opts.LastFrom, opts.LastTo = last[:2], last[2:4]
		}
	}

	data, err := boardimg.RenderPNG(r.Context(), g.FEN, opts)
	if err != nil {
		obslog.L().Error("board_render_error", zap.String("game_id", code), zap.Error(err))
		http.Error(w, "board rendering failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

func (s *Server) handleInviteQR(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if _, err := s.Store.Get(r.Context(), code); err != nil {
		s.writeError(w, code, err)
		return
	}

	url := strings.TrimRight(s.BaseURL, "/") + "/games/" + code
	data, err := qrcode.Encode(url, qrcode.Medium, intQuery(r, "size", 256))
	if err != nil {
		obslog.L().Error("qr_encode_error", zap.String("game_id", code), zap.Error(err))
		http.Error(w, "qr encoding failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(data)
}

func (s *Server) handleIdentityReset(w http.ResponseWriter, r *http.Request) {
	id := s.Identity.Reset(w)
	respondJSON(w, http.StatusOK, map[string]string{"participant_id": id})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func intQuery(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 2048 {
		return def
	}
	return n
}
