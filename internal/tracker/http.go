package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/udisondev/pathtracker/internal/ability"
	"github.com/udisondev/pathtracker/internal/dice"
	"github.com/udisondev/pathtracker/internal/model"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error string `json:"error"`
}

// Handler returns the JSON API of the service.
func Handler(svc *Service) http.Handler {
	mux := http.NewServeMux()
	RegisterRoutes(mux, svc)
	return logRequests(mux)
}

// RegisterRoutes registers the tracker routes on mux.
func RegisterRoutes(mux *http.ServeMux, svc *Service) {
	h := &handlers{svc: svc}

	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("POST /dice", h.rollExpr)

	mux.HandleFunc("GET /characters", h.listCharacters)
	mux.HandleFunc("POST /characters", h.createCharacter)
	mux.HandleFunc("GET /characters/{id}", h.getCharacter)
	mux.HandleFunc("DELETE /characters/{id}", h.deleteCharacter)
	mux.HandleFunc("GET /characters/{id}/sheet", h.sheet)

	mux.HandleFunc("POST /characters/{id}/buffs", h.addBuff)
	mux.HandleFunc("DELETE /characters/{id}/buffs/{bid}", h.removeBuff)
	mux.HandleFunc("POST /characters/{id}/round", h.endRound)

	mux.HandleFunc("POST /characters/{id}/gear", h.addGear)
	mux.HandleFunc("POST /characters/{id}/gear/{gid}/equip", h.equip)

	mux.HandleFunc("POST /characters/{id}/abilities", h.addAbility)
	mux.HandleFunc("POST /characters/{id}/abilities/{aid}/toggle", h.toggleAbility)

	mux.HandleFunc("POST /characters/{id}/damage", h.damage)
	mux.HandleFunc("POST /characters/{id}/roll", h.roll)
}

type handlers struct {
	svc *Service
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) listCharacters(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handlers) createCharacter(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *handlers) getCharacter(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *handlers) deleteCharacter(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) sheet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sheet, err := h.svc.Sheet(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}

type idResponse struct {
	ID string `json:"id"`
}

func (h *handlers) addBuff(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var b model.Buff
	if err := decodeJSON(r, &b); err != nil {
		writeError(w, r, err)
		return
	}
	buffID, err := h.svc.AddBuff(r.Context(), id, b)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: buffID})
}

func (h *handlers) removeBuff(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.RemoveBuff(r.Context(), id, r.PathValue("bid")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type roundRequest struct {
	Rounds int32 `json:"rounds"`
}

type roundResponse struct {
	Expired []string `json:"expired"`
}

func (h *handlers) endRound(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// Пустое тело = один раунд
	req := roundRequest{Rounds: 1}
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	expired, err := h.svc.EndRound(r.Context(), id, req.Rounds)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if expired == nil {
		expired = []string{}
	}
	writeJSON(w, http.StatusOK, roundResponse{Expired: expired})
}

func (h *handlers) addGear(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var g model.Gear
	if err := decodeJSON(r, &g); err != nil {
		writeError(w, r, err)
		return
	}
	gearID, err := h.svc.AddGear(r.Context(), id, g)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: gearID})
}

type equipRequest struct {
	Equipped *bool `json:"equipped"`
}

func (h *handlers) equip(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req equipRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	equipped := req.Equipped == nil || *req.Equipped
	if err := h.svc.Equip(r.Context(), id, r.PathValue("gid"), equipped); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"equipped": equipped})
}

func (h *handlers) addAbility(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var a ability.Ability
	if err := decodeJSON(r, &a); err != nil {
		writeError(w, r, err)
		return
	}
	abilityID, err := h.svc.AddAbility(r.Context(), id, a)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: abilityID})
}

func (h *handlers) toggleAbility(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	active, err := h.svc.ToggleAbility(r.Context(), id, r.PathValue("aid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": active})
}

func (h *handlers) damage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var ch HPChange
	if err := decodeJSON(r, &ch); err != nil {
		writeError(w, r, err)
		return
	}
	if ch.Damage < 0 || ch.Heal < 0 || ch.Temp < 0 {
		writeError(w, r, fmt.Errorf("%w: hp amounts must not be negative", errBadRequest))
		return
	}
	view, err := h.svc.ApplyDamage(r.Context(), id, ch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type rollRequest struct {
	Check string `json:"check"`
}

func (h *handlers) roll(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req rollRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Roll(r.Context(), id, req.Check)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type diceRequest struct {
	Expr string `json:"expr"`
}

func (h *handlers) rollExpr(w http.ResponseWriter, r *http.Request) {
	var req diceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.RollExpr(req.Expr)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: character id: %w", errBadRequest, err)
	}
	return id, nil
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decoding body: %w", errBadRequest, err)
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for bodies that may be omitted. An empty
// body leaves v untouched, whatever Content-Length says.
func decodeOptionalJSON(r *http.Request, v any) error {
	err := decodeJSON(r, v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, model.ErrInvalidName),
		errors.Is(err, model.ErrInvalidModifier),
		errors.Is(err, ErrUnknownCheck),
		errors.Is(err, dice.ErrEmptyExpr),
		errors.Is(err, dice.ErrInvalidExpr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
