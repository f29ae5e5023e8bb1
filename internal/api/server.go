package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pefman/armorsheet/internal/catalog"
	"github.com/pefman/armorsheet/internal/models"
	"github.com/pefman/armorsheet/internal/sheet"
	"github.com/pefman/armorsheet/internal/stats"
	"github.com/rs/zerolog"
)

// Server exposes the character registry over HTTP.
type Server struct {
	reg  *sheet.Registry
	cat  *catalog.Catalog
	feed http.Handler
	log  zerolog.Logger
}

// NewServer wires the handlers. feed may be nil to disable the websocket routes.
func NewServer(reg *sheet.Registry, cat *catalog.Catalog, feed http.Handler, log zerolog.Logger) *Server {
	if cat == nil {
		cat = catalog.New()
	}
	return &Server{reg: reg, cat: cat, feed: feed, log: log}
}

// Router returns the full handler tree, CORS included.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	api.HandleFunc("/catalog/armor", s.listCatalog).Methods(http.MethodGet)

	api.HandleFunc("/characters", s.createCharacter).Methods(http.MethodPost)
	api.HandleFunc("/characters", s.listCharacters).Methods(http.MethodGet)
	api.HandleFunc("/characters/{id}", s.getCharacter).Methods(http.MethodGet)
	api.HandleFunc("/characters/{id}", s.deleteCharacter).Methods(http.MethodDelete)

	api.HandleFunc("/characters/{id}/armor", s.equip).Methods(http.MethodPost)
	api.HandleFunc("/characters/{id}/armor/{pieceID}", s.unequip).Methods(http.MethodDelete)
	api.HandleFunc("/characters/{id}/armor/{pieceID}/repair", s.repair).Methods(http.MethodPost)
	api.HandleFunc("/characters/{id}/protection", s.protection).Methods(http.MethodGet)

	api.HandleFunc("/characters/{id}/attacks", s.attack).Methods(http.MethodPost)
	api.HandleFunc("/characters/{id}/wounds", s.wounds).Methods(http.MethodGet)
	api.HandleFunc("/characters/{id}/wounds/{woundID}", s.removeWound).Methods(http.MethodDelete)
	api.HandleFunc("/characters/{id}/wounds/{woundID}/reduce", s.reduceWound).Methods(http.MethodPost)

	api.HandleFunc("/stats/characters/{id}", s.characterStats).Methods(http.MethodGet)
	api.HandleFunc("/stats/worst-wound/today", s.worstWoundToday).Methods(http.MethodGet)

	if s.feed != nil {
		r.Handle("/ws/characters", s.feed)
		r.Handle("/ws/characters/{id}", s.feed)
	}
	return withCORS(r)
}

// ========================= Characters =========================

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"status": "ok", "characters": len(s.reg.List())})
}

func (s *Server) listCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.cat.All())
}

type createRequest struct {
	Name string `json:"name"`
}

func (s *Server) createCharacter(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !decode(w, r, &req) {
		return
	}
	rec, err := s.reg.Create(r.Context(), req.Name)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, rec)
}

func (s *Server) listCharacters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.reg.List())
}

func (s *Server) getCharacter(w http.ResponseWriter, r *http.Request) {
	sh, err := s.reg.Snapshot(mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, sh)
}

func (s *Server) deleteCharacter(w http.ResponseWriter, r *http.Request) {
	if err := s.reg.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ========================= Armor =========================

// equipRequest is either a full armor record or the name of a catalog entry.
type equipRequest struct {
	Catalog string `json:"catalog,omitempty"`
	models.ArmorRecord
}

func (s *Server) equip(w http.ResponseWriter, r *http.Request) {
	var req equipRequest
	if !decode(w, r, &req) {
		return
	}
	rec := req.ArmorRecord
	if req.Catalog != "" {
		found, ok := s.cat.Find(req.Catalog)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("no catalog armor named %q", req.Catalog))
			return
		}
		rec = found
	}
	piece, err := s.reg.Equip(r.Context(), mux.Vars(r)["id"], rec)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, piece)
}

func (s *Server) unequip(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	removed, err := s.reg.Unequip(r.Context(), vars["id"], vars["pieceID"])
	if err != nil {
		s.fail(w, err)
		return
	}
	if !removed {
		s.fail(w, fmt.Errorf("%w: %s", sheet.ErrPieceNotFound, vars["pieceID"]))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type amountRequest struct {
	Amount int `json:"amount"`
}

func (s *Server) repair(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decode(w, r, &req) {
		return
	}
	vars := mux.Vars(r)
	piece, err := s.reg.Repair(r.Context(), vars["id"], vars["pieceID"], req.Amount)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, piece)
}

// Protection is the body of GET /characters/{id}/protection.
type Protection struct {
	Protection   map[models.Location]int `json:"protection"`
	Encumbrance  int                     `json:"encumbrance"`
	LayerPenalty int                     `json:"layer_penalty"`
}

func (s *Server) protection(w http.ResponseWriter, r *http.Request) {
	sh, err := s.reg.Snapshot(mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, Protection{Protection: sh.Protection, Encumbrance: sh.Encumbrance, LayerPenalty: sh.LayerPenalty})
}

// ========================= Attacks & wounds =========================

func (s *Server) attack(w http.ResponseWriter, r *http.Request) {
	var req models.AttackRecord
	if !decode(w, r, &req) {
		return
	}
	res, err := s.reg.Attack(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) wounds(w http.ResponseWriter, r *http.Request) {
	rec, err := s.reg.Get(mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, rec.Wounds)
}

func (s *Server) removeWound(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	removed, err := s.reg.RemoveWound(r.Context(), vars["id"], vars["woundID"])
	if err != nil {
		s.fail(w, err)
		return
	}
	if !removed {
		s.fail(w, fmt.Errorf("%w: %s", sheet.ErrWoundNotFound, vars["woundID"]))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) reduceWound(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decode(w, r, &req) {
		return
	}
	vars := mux.Vars(r)
	wound, err := s.reg.ReduceWound(r.Context(), vars["id"], vars["woundID"], req.Amount)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, wound)
}

// ========================= Stats =========================

func (s *Server) characterStats(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.reg.Get(id); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, stats.Get(id))
}

// worstWoundToday answers with an empty object when no wound was dealt today.
func (s *Server) worstWoundToday(w http.ResponseWriter, r *http.Request) {
	worst, ok := stats.WorstWoundToday()
	if !ok {
		writeJSON(w, map[string]any{})
		return
	}
	writeJSON(w, worst)
}

// ========================= Helpers =========================

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return false
	}
	return true
}

// fail maps registry errors onto HTTP statuses.
func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sheet.ErrCharacterNotFound),
		errors.Is(err, sheet.ErrPieceNotFound),
		errors.Is(err, sheet.ErrWoundNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, sheet.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":   http.StatusText(code),
		"message": msg,
		"status":  code,
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
