package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"theater-recon/internal/fileio"
	"theater-recon/internal/reconcile/model"
	"theater-recon/internal/reconcile/service"
)

// Handler is the operator-facing HTTP surface over match sessions.
type Handler struct {
	engine   *service.Engine
	reviewer *service.Reviewer
	store    *fileio.Store
	sessions *SessionStore
	opts     model.Options
	log      zerolog.Logger
	now      func() time.Time
}

func New(engine *service.Engine, reviewer *service.Reviewer, store *fileio.Store, opts model.Options, logger zerolog.Logger) *Handler {
	return &Handler{
		engine:   engine,
		reviewer: reviewer,
		store:    store,
		sessions: NewSessionStore(),
		opts:     opts.WithDefaults(),
		log:      logger,
		now:      time.Now,
	}
}

// Mount registers the session routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.DeleteSession)
			r.Post("/match", h.Match)
			r.Get("/results", h.Results)
			r.Get("/review", h.Review)
			r.Post("/review/rerun", h.Rerun)
			r.Post("/review/not-on-fandango", h.MarkNotOnFandango)
			r.Post("/review/closed", h.MarkClosed)
			r.Post("/persist", h.Persist)
		})
	})
}

type sessionSummary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Markets   int       `json:"markets"`
	Theaters  int       `json:"theaters"`
	Results   int       `json:"results"`
	Review    int       `json:"review"`
}

func summarize(s *model.MatchSession) sessionSummary {
	sum := sessionSummary{ID: s.ID, CreatedAt: s.CreatedAt, Results: len(s.Results)}
	for _, ref := range s.Roster.Markets() {
		sum.Markets++
		sum.Theaters += len(s.Roster.Theaters(ref))
	}
	sum.Review = service.Partition(s.Results).Size()
	return sum
}

// CreateSession starts a session from an uploaded roster (multipart field
// "roster") or, without upload, from the markets file on disk.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	log := h.reqLogger(r)

	var (
		roster model.Roster
		err    error
	)
	file, header, ferr := r.FormFile("roster")
	switch {
	case ferr == nil:
		defer file.Close()
		roster, err = fileio.ReadRoster(file, header.Filename)
		if err != nil {
			writeError(w, http.StatusBadRequest, "read roster: "+err.Error())
			return
		}
	case errors.Is(ferr, http.ErrMissingFile), errors.Is(ferr, http.ErrNotMultipart):
		roster, err = h.store.LoadRoster()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "bad multipart form: "+ferr.Error())
		return
	}

	cache, err := h.store.LoadCache()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s := model.NewSession(roster, cache, h.opts, h.now())
	h.sessions.Add(s)
	sum := summarize(s)
	log.Info().Str("session", s.ID).Int("markets", sum.Markets).Int("theaters", sum.Theaters).Msg("session created")
	writeJSON(w, http.StatusCreated, sum)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *model.MatchSession) {
		writeJSON(w, http.StatusOK, summarize(s))
	})
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Delete(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, ErrSessionNotFound.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type matchRequest struct {
	Markets         []string `json:"markets"`
	Threshold       int      `json:"threshold"`
	StrictThreshold int      `json:"strict_threshold"`
	Date            string   `json:"date"`
}

type matchResponse struct {
	Results []model.MatchResult `json:"results"`
	Review  service.ReviewQueue `json:"review"`
}

// Match runs the engine for the requested markets, or all markets when none are named.
func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	log := h.reqLogger(r)
	h.withSession(w, r, func(s *model.MatchSession) {
		if req.Threshold > 0 {
			s.Options.Threshold = req.Threshold
		}
		if req.StrictThreshold > 0 {
			s.Options.StrictThreshold = req.StrictThreshold
		}
		if req.Date != "" {
			s.Options.Date = req.Date
		}

		start := time.Now()
		results, err := h.engine.MatchRoster(r.Context(), s.Roster, req.Markets, s.Options)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, service.ErrMarketNotFound) {
				status = http.StatusNotFound
			}
			writeError(w, status, err.Error())
			return
		}
		s.Upsert(results)
		q := service.Partition(results)
		log.Info().Str("session", s.ID).Int("results", len(results)).Int("review", q.Size()).
			Dur("elapsed", time.Since(start)).Msg("match done")
		writeJSON(w, http.StatusOK, matchResponse{Results: results, Review: q})
	})
}

func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *model.MatchSession) {
		out := s.Results
		if m := r.URL.Query().Get("market"); m != "" {
			out = s.MarketResults(m)
		}
		if out == nil {
			out = []model.MatchResult{}
		}
		writeJSON(w, http.StatusOK, out)
	})
}

func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *model.MatchSession) {
		writeJSON(w, http.StatusOK, service.Partition(s.Results))
	})
}

type reviewRequest struct {
	Market       string `json:"market"`
	OriginalName string `json:"original_name"`
	Name         string `json:"name"`    // rerun: edited search name, manual url: listing name
	Zip          string `json:"zip"`     // rerun: edited ZIP
	URL          string `json:"url"`     // rerun: manual listing URL override
	Website      string `json:"website"` // not-on-fandango
}

func (h *Handler) Rerun(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if !decodeReview(w, r, &req) {
		return
	}
	h.withSession(w, r, func(s *model.MatchSession) {
		var (
			res model.MatchResult
			err error
		)
		if req.URL != "" {
			res, err = h.reviewer.ManualURL(s, req.Market, req.OriginalName, req.URL, req.Name)
		} else {
			res, err = h.reviewer.Rerun(r.Context(), s, req.Market, req.OriginalName, req.Name, req.Zip)
		}
		writeReviewResult(w, res, err)
	})
}

func (h *Handler) MarkNotOnFandango(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if !decodeReview(w, r, &req) {
		return
	}
	h.withSession(w, r, func(s *model.MatchSession) {
		res, err := service.MarkNotOnFandango(s, req.Market, req.OriginalName, req.Website)
		writeReviewResult(w, res, err)
	})
}

func (h *Handler) MarkClosed(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if !decodeReview(w, r, &req) {
		return
	}
	h.withSession(w, r, func(s *model.MatchSession) {
		res, err := service.MarkClosed(s, req.Market, req.OriginalName)
		writeReviewResult(w, res, err)
	})
}

type persistRequest struct {
	Mode string `json:"mode"`
}

type duplicateResponse struct {
	Error      string              `json:"error"`
	Duplicates map[string][]string `json:"duplicates"`
	Roster     model.Roster        `json:"roster"`
}

// Persist applies the session results and writes roster and cache. Duplicate
// names refuse the write (409) and return the merged roster for repair.
func (h *Handler) Persist(w http.ResponseWriter, r *http.Request) {
	var req persistRequest
	if !decodeBody(w, r, &req) {
		return
	}
	mode, err := service.ParseApplyMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	log := h.reqLogger(r)
	h.withSession(w, r, func(s *model.MatchSession) {
		cache, roster := service.Apply(s.Roster, s.Cache, s.Results, mode)
		err := service.Persist(h.store, roster, cache, h.now())

		var dup *service.DuplicateNamesError
		var invalid *service.InvalidCacheError
		switch {
		case errors.As(err, &dup):
			log.Warn().Str("session", s.ID).Interface("duplicates", dup.Duplicates).Msg("persist refused")
			writeJSON(w, http.StatusConflict, duplicateResponse{Error: dup.Error(), Duplicates: dup.Duplicates, Roster: roster})
			return
		case errors.As(err, &invalid):
			writeError(w, http.StatusUnprocessableEntity, invalid.Error())
			return
		case err != nil:
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		s.Roster, s.Cache = roster, cache
		// results now refer to the renamed roster entries
		for i := range s.Results {
			if s.Results[i].Outcome == model.OutcomeMatched {
				s.Results[i].OriginalName = s.Results[i].MatchedName
			}
		}
		log.Info().Str("session", s.ID).Str("mode", string(mode)).Int("markets", len(cache.Markets)).Msg("persisted")
		writeJSON(w, http.StatusOK, summarize(s))
	})
}

func (h *Handler) withSession(w http.ResponseWriter, r *http.Request, fn func(*model.MatchSession)) {
	err := h.sessions.With(chi.URLParam(r, "id"), func(s *model.MatchSession) error {
		fn(s)
		return nil
	})
	if errors.Is(err, ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
	}
}

func (h *Handler) reqLogger(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &h.log
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return false
	}
	return true
}

func decodeReview(w http.ResponseWriter, r *http.Request, req *reviewRequest) bool {
	if !decodeBody(w, r, req) {
		return false
	}
	if req.Market == "" || req.OriginalName == "" {
		writeError(w, http.StatusBadRequest, "market and original_name are required")
		return false
	}
	return true
}

func writeReviewResult(w http.ResponseWriter, res model.MatchResult, err error) {
	var invalid *service.InvalidURLError
	switch {
	case errors.Is(err, service.ErrResultNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": invalid.Error(), "result": res})
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
