package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Veraticus/the-budget-must-balance/internal/extraction"
	"github.com/Veraticus/the-budget-must-balance/internal/model"
	"github.com/Veraticus/the-budget-must-balance/internal/recording"
)

// ExtractionResponse reports what a voice or utterance request committed.
type ExtractionResponse struct {
	Message   string          `json:"message"`
	Path      string          `json:"path"`
	Reason    string          `json:"reason,omitempty"`
	Incomes   []model.Income  `json:"incomes"`
	Expenses  []model.Expense `json:"expenses"`
	Dropped   int             `json:"dropped"`
	Discarded bool            `json:"discarded,omitempty"`
}

type utteranceRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	if s.session == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "unavailable", "Voice extraction is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBytes)
	if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Missing audio file")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to read audio file")
		return
	}

	audio := model.Audio{
		Data:   data,
		Format: recording.FormatFromPath(header.Filename),
		Name:   header.Filename,
	}

	s.await(w, r, func(ctx context.Context) (<-chan extraction.Outcome, error) {
		return s.session.Start(ctx, audio)
	})
}

func (s *Server) handleUtterance(w http.ResponseWriter, r *http.Request) {
	if s.session == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "unavailable", "Voice extraction is not configured")
		return
	}

	var req utteranceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Missing text")
		return
	}

	s.await(w, r, func(ctx context.Context) (<-chan extraction.Outcome, error) {
		return s.session.StartText(ctx, req.Text)
	})
}

// await starts an extraction and waits for it. Remote calls run on a
// context detached from the request; if the client goes away the session
// is canceled and the late result is discarded.
func (s *Server) await(w http.ResponseWriter, r *http.Request, start func(context.Context) (<-chan extraction.Outcome, error)) {
	ch, err := start(context.WithoutCancel(r.Context()))
	if errors.Is(err, extraction.ErrBusy) {
		writeJSONError(w, http.StatusConflict, "busy", err.Error())
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "server_error", "Failed to start extraction")
		return
	}

	select {
	case out := <-ch:
		status := http.StatusOK
		if out.Discarded {
			status = http.StatusConflict
		}
		writeJSON(w, status, toResponse(out))
	case <-r.Context().Done():
		if s.session.Cancel() {
			s.logger.Info("client went away, extraction canceled")
		}
	}
}

func toResponse(out extraction.Outcome) ExtractionResponse {
	resp := ExtractionResponse{
		Message:   out.Result.Message,
		Path:      out.Final.String(),
		Incomes:   out.Report.Incomes,
		Expenses:  out.Report.Expenses,
		Dropped:   out.Report.Dropped,
		Discarded: out.Discarded,
	}
	if resp.Incomes == nil {
		resp.Incomes = []model.Income{}
	}
	if resp.Expenses == nil {
		resp.Expenses = []model.Expense{}
	}
	if out.Reason != nil {
		resp.Reason = out.Reason.Error()
	}
	return resp
}

func (s *Server) handleVoiceState(w http.ResponseWriter, _ *http.Request) {
	if s.session == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "unavailable", "Voice extraction is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state": s.session.State().String(),
		"busy":  s.session.Busy(),
	})
}

func (s *Server) handleVoiceCancel(w http.ResponseWriter, _ *http.Request) {
	if s.session == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "unavailable", "Voice extraction is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"canceled": s.session.Cancel()})
}
