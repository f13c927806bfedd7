// Package httpapi exposes screening conversations over HTTP.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/export"
	"github.com/spigell/cv-screener/internal/screening"
)

const maxBodyBytes = 4 << 20

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

type resumeDTO struct {
	ID         string            `json:"id" validate:"max=255"`
	ParsedData screening.Payload `json:"parsed_data"`
}

type createSessionRequest struct {
	Resumes []resumeDTO `json:"resumes" validate:"omitempty,dive"`
}

type resumesRequest struct {
	Resumes []resumeDTO `json:"resumes" validate:"required,min=1,dive"`
}

type textRequest struct {
	Text string `json:"text" validate:"required,max=20000"`
}

type messageRequest struct {
	Message string `json:"message" validate:"max=20000"`
}

type weightsRequest struct {
	Skills         *float64 `json:"skills" validate:"omitempty,gte=0,lte=100"`
	Education      *float64 `json:"education" validate:"omitempty,gte=0,lte=100"`
	Experience     *float64 `json:"experience" validate:"omitempty,gte=0,lte=100"`
	Certifications *float64 `json:"certifications" validate:"omitempty,gte=0,lte=100"`
}

// Archive reads back archived transcripts.
type Archive interface {
	Conversations(ctx context.Context) ([]string, error)
	Turns(ctx context.Context, conversationID string) ([]screening.Turn, error)
}

// Server serves the conversation API.
type Server struct {
	sessions *Sessions
	archive  Archive
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

func NewServer(sessions *Sessions, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{sessions: sessions, gatherer: gatherer, logger: logger}
}

// WithArchive enables the archive routes.
func (s *Server) WithArchive(a Archive) *Server {
	s.archive = a
	return s
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.sessions.Len()})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1/archive", func(r chi.Router) {
		r.Get("/", s.listArchived)
		r.Get("/{id}", s.archivedTranscript)
	})

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.withEngine(s.snapshot))
			r.Delete("/", s.deleteSession)
			r.Put("/resumes", s.withEngine(s.setResumes))
			r.Post("/job-description", s.withEngine(s.submitJobDescription))
			r.Patch("/weights", s.withEngine(s.updateWeights))
			r.Post("/turns", s.withEngine(s.submitTurn))
			r.Post("/invitation/recipients/{index}", s.withEngine(s.toggleRecipient))
			r.Put("/invitation/message", s.withEngine(s.updateMessage))
			r.Post("/invitation/send", s.withEngine(s.sendInvitations))
			r.Get("/report.xlsx", s.withEngine(s.report))
		})
	})

	return r
}

type engineHandler func(w http.ResponseWriter, r *http.Request, e *screening.Engine)

func (s *Server) withEngine(h engineHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := s.sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err, nil)
			return
		}
		h(w, r, e)
	}
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(started)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// decode reads a JSON body into dst and validates it.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, fmt.Errorf("%w: invalid json", screening.ErrInvalidArgument), nil)
		return false
	}
	if err := getValidator().Struct(dst); err != nil {
		verrs := map[string]string{}
		if ve, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range ve {
				verrs[strings.ToLower(fe.Field())] = fe.Tag()
			}
		}
		writeError(w, fmt.Errorf("%w: validation failed", screening.ErrInvalidArgument), verrs)
		return false
	}
	return true
}

func toResumes(in []resumeDTO) []screening.Resume {
	out := make([]screening.Resume, 0, len(in))
	for _, r := range in {
		out = append(out, screening.Resume{ID: r.ID, Payload: r.ParsedData})
	}
	return out
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}

	e := s.sessions.Create()
	if len(req.Resumes) > 0 {
		if err := e.SetResumes(toResumes(req.Resumes)); err != nil {
			_ = s.sessions.Delete(e.ID())
			writeError(w, err, nil)
			return
		}
	}

	s.logger.Info("session created", zap.String("conversation_id", e.ID()))
	writeJSON(w, http.StatusCreated, e.Snapshot())
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) snapshot(w http.ResponseWriter, _ *http.Request, e *screening.Engine) {
	writeJSON(w, http.StatusOK, e.Snapshot())
}

func (s *Server) setResumes(w http.ResponseWriter, r *http.Request, e *screening.Engine) {
	var req resumesRequest
	if !decode(w, r, &req) {
		return
	}
	if err := e.SetResumes(toResumes(req.Resumes)); err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, e.Snapshot())
}

func (s *Server) submitJobDescription(w http.ResponseWriter, r *http.Request, e *screening.Engine) {
	var req textRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, e.SubmitJobDescription(r.Context(), req.Text))
}

func (s *Server) updateWeights(w http.ResponseWriter, r *http.Request, e *screening.Engine) {
	var req weightsRequest
	if !decode(w, r, &req) {
		return
	}
	weights := e.UpdateWeights(screening.WeightUpdate{
		Skills:         req.Skills,
		Education:      req.Education,
		Experience:     req.Experience,
		Certifications: req.Certifications,
	})
	writeJSON(w, http.StatusOK, map[string]any{"weights": weights, "sum": weights.Sum(), "valid": weights.Validate() == nil})
}

func (s *Server) submitTurn(w http.ResponseWriter, r *http.Request, e *screening.Engine) {
	var req textRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, e.SubmitTurn(r.Context(), req.Text))
}

func (s *Server) toggleRecipient(w http.ResponseWriter, r *http.Request, e *screening.Engine) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: recipient index must be an integer", screening.ErrInvalidArgument), nil)
		return
	}
	if err := e.ToggleRecipient(index); err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, e.Invitation())
}

func (s *Server) updateMessage(w http.ResponseWriter, r *http.Request, e *screening.Engine) {
	var req messageRequest
	if !decode(w, r, &req) {
		return
	}
	if err := e.UpdateInviteMessage(req.Message); err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, e.Invitation())
}

func (s *Server) sendInvitations(w http.ResponseWriter, r *http.Request, e *screening.Engine) {
	writeJSON(w, http.StatusOK, e.SendInvitations(r.Context()))
}

func (s *Server) report(w http.ResponseWriter, _ *http.Request, e *screening.Engine) {
	var buf bytes.Buffer
	if err := export.WriteReport(&buf, e.Snapshot()); err != nil {
		s.logger.Error("report rendering failed", zap.Error(err))
		writeError(w, err, nil)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "screening-"+e.ID()+".xlsx"))
	_, _ = w.Write(buf.Bytes())
}

var errArchiveDisabled = fmt.Errorf("%w: transcript archive is disabled", screening.ErrNotFound)

func (s *Server) listArchived(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, errArchiveDisabled, nil)
		return
	}

	ids, err := s.archive.Conversations(r.Context())
	if err != nil {
		s.logger.Error("listing archived conversations failed", zap.Error(err))
		writeError(w, err, nil)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": ids})
}

func (s *Server) archivedTranscript(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, errArchiveDisabled, nil)
		return
	}

	id := chi.URLParam(r, "id")
	turns, err := s.archive.Turns(r.Context(), id)
	if err != nil {
		s.logger.Error("reading archived transcript failed", zap.String("conversation_id", id), zap.Error(err))
		writeError(w, err, nil)
		return
	}
	if len(turns) == 0 {
		writeError(w, fmt.Errorf("%w: no archived turns for %q", screening.ErrNotFound, id), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "transcript": turns})
}
