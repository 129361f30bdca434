// Package httpapi exposes the case-intake and pipeline-control endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	m "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"advocai/internal/auth"
	"advocai/internal/judge"
	"advocai/internal/schemas"
	"advocai/internal/session"
	"advocai/internal/storage"
	"advocai/internal/worker"
)

// maxUploadBytes bounds a multipart case upload.
const maxUploadBytes = 32 << 20

// caseFile records where the uploaded documents landed, so the run and resume
// endpoints can rebuild the task payload.
const caseFile = "case.json"

type caseRecord struct {
	DenialPath string `json:"denial_path"`
	PolicyPath string `json:"policy_path,omitempty"`
	DenialRef  string `json:"denial_ref,omitempty"`
	PolicyRef  string `json:"policy_ref,omitempty"`
}

// Enqueuer is the slice of asynq.Client the server uses.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ObjectStore is the slice of storage.Client the server uses: mirroring
// uploads in and reading mirrored artifacts back out.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) (string, error)
	GetObject(ctx context.Context, ref string) ([]byte, error)
}

type Server struct {
	Sessions    *session.Manager
	Store       ObjectStore // optional; uploads and artifacts are mirrored when set
	Asynq       Enqueuer
	SessionsDir string
	APIToken    string

	healthy func() error
	logger  *zap.Logger
}

// NewServer assembles the router. healthy is polled by /healthz and may be nil.
func NewServer(sessions *session.Manager, store ObjectStore, asq Enqueuer,
	sessionsDir, apiToken, addr string, healthy func() error, logger *zap.Logger) *http.Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		Sessions:    sessions,
		Store:       store,
		Asynq:       asq,
		SessionsDir: sessionsDir,
		APIToken:    apiToken,
		healthy:     healthy,
		logger:      logger.Named("http"),
	}

	r := chi.NewRouter()
	r.Use(m.RequestID, m.RealIP, m.Logger, m.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(RequireAPIToken(apiToken))
		r.Post("/cases", s.createCase)
		r.Post("/cases/{id}/run", s.runCase)
		r.Post("/cases/{id}/resume", s.resumeCase)
		r.Get("/cases/{id}/status", s.caseStatus)
		r.Get("/cases/{id}/scorecard", s.caseScorecard)
		r.Get("/cases/{id}/letter", s.caseLetter)
	})

	r.Get("/healthz", s.healthz)

	return &http.Server{Addr: addr, Handler: r}
}

type errResp struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// createCase accepts a multipart upload with a mandatory "denial" file and an
// optional "policy" file, opens a session, and stores the documents.
func (s *Server) createCase(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, 400, errResp{err.Error()})
		return
	}

	denialFile, denialHeader, err := r.FormFile("denial")
	if err != nil {
		writeJSON(w, 400, errResp{"denial document is required"})
		return
	}
	defer denialFile.Close()

	upload := uuid.NewString()
	sessionID, err := s.Sessions.StartSession(r.Context(), map[string]any{
		"denial_filename":   denialHeader.Filename,
		"upload_token_hash": auth.HashToken(upload),
	})
	if err != nil {
		writeJSON(w, 500, errResp{err.Error()})
		return
	}

	docsDir := filepath.Join(s.SessionsDir, sessionID, "documents")
	if err := os.MkdirAll(docsDir, 0o755); err != nil {
		writeJSON(w, 500, errResp{err.Error()})
		return
	}

	record := caseRecord{}
	record.DenialPath, record.DenialRef, err = s.saveUpload(r, sessionID, docsDir, denialFile, denialHeader, "denial")
	if err != nil {
		writeJSON(w, 500, errResp{err.Error()})
		return
	}

	if policyFile, policyHeader, err := r.FormFile("policy"); err == nil {
		defer policyFile.Close()
		record.PolicyPath, record.PolicyRef, err = s.saveUpload(r, sessionID, docsDir, policyFile, policyHeader, "policy")
		if err != nil {
			writeJSON(w, 500, errResp{err.Error()})
			return
		}
	}

	if err := writeCaseRecord(filepath.Join(s.SessionsDir, sessionID, caseFile), record); err != nil {
		writeJSON(w, 500, errResp{err.Error()})
		return
	}

	s.logger.Info("case created",
		zap.String("session_id", sessionID),
		zap.String("denial", denialHeader.Filename))
	writeJSON(w, 200, schemas.CreateCaseResponse{
		SessionID:   sessionID,
		CaseID:      sessionID,
		UploadToken: upload,
		Status:      "created",
	})
}

// saveUpload writes the document to the session directory and mirrors it to
// object storage when configured.
func (s *Server) saveUpload(r *http.Request, sessionID, docsDir string,
	file multipart.File, header *multipart.FileHeader, role string) (string, string, error) {
	name := role + filepath.Ext(header.Filename)
	path := filepath.Join(docsDir, name)

	body, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return "", "", fmt.Errorf("read %s upload: %w", role, err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", "", fmt.Errorf("store %s upload: %w", role, err)
	}

	ref := ""
	if s.Store != nil {
		ref, err = s.Store.PutObject(r.Context(), storage.DocumentKey(sessionID, name), body, "application/octet-stream")
		if err != nil {
			s.logger.Warn("object storage mirror failed",
				zap.String("session_id", sessionID), zap.String("role", role), zap.Error(err))
			ref = ""
		}
	}
	return path, ref, nil
}

func (s *Server) runCase(w http.ResponseWriter, r *http.Request) {
	s.enqueueRun(w, r, chi.URLParam(r, "id"))
}

// resumeCase re-enqueues a run; completed stages are skipped via checkpoints.
func (s *Server) resumeCase(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := s.Sessions.State(r.Context(), id)
	if err != nil {
		writeJSON(w, 404, errResp{"case not found"})
		return
	}
	if !st.IsResumable {
		writeJSON(w, 409, errResp{"case is not resumable"})
		return
	}
	s.enqueueRun(w, r, id)
}

func (s *Server) enqueueRun(w http.ResponseWriter, r *http.Request, id string) {
	record, err := readCaseRecord(filepath.Join(s.SessionsDir, id, caseFile))
	if err != nil {
		writeJSON(w, 404, errResp{"case not found"})
		return
	}

	task, err := worker.NewRunTask(worker.RunPayload{
		SessionID:  id,
		DenialPath: record.DenialPath,
		PolicyPath: record.PolicyPath,
	})
	if err != nil {
		writeJSON(w, 500, errResp{err.Error()})
		return
	}
	if _, err := s.Asynq.Enqueue(task, asynq.MaxRetry(0)); err != nil {
		writeJSON(w, 500, errResp{err.Error()})
		return
	}
	writeJSON(w, 200, schemas.RunResponse{SessionID: id, Status: "enqueued"})
}

func (s *Server) caseStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	last, err := s.Sessions.LastCompleted(r.Context(), id)
	if err != nil {
		writeJSON(w, 404, errResp{"case not found"})
		return
	}
	resp := schemas.StatusResponse{SessionID: id, LastCompletedStage: last}
	if st, err := s.Sessions.State(r.Context(), id); err == nil {
		resp.IsResumable = st.IsResumable
	}
	writeJSON(w, 200, resp)
}

func (s *Server) caseScorecard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b, err := s.readArtifact(r, id, judge.ScorecardFile)
	if err != nil {
		writeJSON(w, 404, errResp{"scorecard not available"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (s *Server) caseLetter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b, err := s.readArtifact(r, id, judge.BarristerOutputFile)
	if err != nil {
		writeJSON(w, 404, errResp{"appeal letter not available"})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// readArtifact prefers the local session directory and falls back to the
// object-store mirror when the file is gone.
func (s *Server) readArtifact(r *http.Request, id, name string) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(s.SessionsDir, id, name))
	if err == nil {
		return b, nil
	}
	if s.Store == nil {
		return nil, err
	}
	return s.Store.GetObject(r.Context(), storage.ArtifactKey(id, name))
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.healthy != nil {
		if err := s.healthy(); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"status":"degraded"}`))
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func writeCaseRecord(path string, record caseRecord) error {
	b, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func readCaseRecord(path string) (*caseRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var record caseRecord
	if err := json.Unmarshal(b, &record); err != nil {
		return nil, errors.New("case record corrupted")
	}
	return &record, nil
}
