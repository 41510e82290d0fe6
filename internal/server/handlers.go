package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gulfshield/claims-engine/internal/normalize"
	"github.com/gulfshield/claims-engine/internal/pipeline"
	"github.com/gulfshield/claims-engine/internal/prompt"
	"github.com/gulfshield/claims-engine/internal/rules"
	"github.com/gulfshield/claims-engine/internal/store"
)

// maxPayloadBytes bounds inbound claim payloads.
const maxPayloadBytes = 4 << 20

// handleProcess decides one claim. The response is serialized in the format
// the claim arrived in.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	mod := moduleFrom(r.Context())

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes+1))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(payload) > maxPayloadBytes {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "payload exceeds 4 MiB")
		return
	}

	format := formatFromContentType(r.Header.Get("Content-Type"))

	rec, err := normalize.Normalize(payload, format)
	if err != nil {
		s.writeError(w, err)
		return
	}

	report, err := s.processors[mod].Process(r.Context(), rec)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// Auto-detected requests answer in the format the sniffer found.
	// Normalize already accepted the payload, so detection cannot fail here.
	if format == normalize.FormatAuto {
		if detected, derr := normalize.DetectFormat(payload); derr == nil {
			format = detected
		} else {
			format = normalize.FormatJSON
		}
	}

	body, err := normalize.SerializeReport(report, format)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if format == normalize.FormatXML {
		w.Header().Set("Content-Type", "application/xml")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// handlePrompts exposes the module's templates and condition lists so rule
// authors can inspect what the oracle actually sees.
func (s *Server) handlePrompts(w http.ResponseWriter, r *http.Request) {
	cfg := s.rules[moduleFrom(r.Context())]

	writeJSON(w, http.StatusOK, map[string]any{
		"module":                cfg.Module(),
		"main_prompt":           cfg.MainPrompt(),
		"compact_prompt":        cfg.CompactPrompt(),
		"translation_prompt":    cfg.TranslationPrompt(),
		"translation_enabled":   cfg.TranslationEnabled(),
		"rejection_conditions":  cfg.RejectionConditions(),
		"recovery_conditions":   cfg.RecoveryConditions(),
		"max_prompt_chars":      cfg.MaxPromptChars(),
		"subrogation_threshold": subrogationField(cfg),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.collector == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "decision trail is disabled")
		return
	}

	lookback := s.cfg.Monitoring.LookbackHours
	if v := r.URL.Query().Get("lookback_hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSONError(w, http.StatusBadRequest, "lookback_hours must be a positive integer")
			return
		}
		lookback = n
	}

	snap, err := s.collector.Collect(r.Context(), moduleFrom(r.Context()), lookback)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleListDecisions(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "decision trail is disabled")
		return
	}

	filter := store.DecisionFilter{
		Module:     moduleFrom(r.Context()),
		CaseNumber: r.URL.Query().Get("case_number"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}

	reports, err := s.store.ListDecisions(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"decisions": reports})
}

func (s *Server) handleGetDecision(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "decision trail is disabled")
		return
	}

	report, err := s.store.GetDecision(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeJSONError(w, http.StatusNotFound, "decision not found")
			return
		}
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	status := http.StatusOK

	modules := make(map[string]string, len(s.rules))
	for mod := range s.rules {
		modules[string(mod)] = "loaded"
	}
	resp["modules"] = modules

	if s.checker != nil {
		oracleStatus := s.checker.Status()
		resp["oracle"] = oracleStatus
		if !oracleStatus.Healthy {
			resp["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, resp)
}

// writeError maps pipeline errors onto HTTP statuses. Caller mistakes are
// 4xx, dependency failures 5xx; the status pins blame.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		validationErr *normalize.ValidationError
		buildErr      *prompt.BuildError
		translateErr  *pipeline.TranslationError
		oracleErr     *pipeline.OracleUnavailableError
		invalidErr    *pipeline.DecisionInvalidError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSONError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &buildErr):
		writeJSONError(w, http.StatusInternalServerError, buildErr.Error())
	case errors.As(err, &translateErr):
		writeJSONError(w, http.StatusServiceUnavailable, "translation stage failed")
	case errors.As(err, &oracleErr):
		writeJSONError(w, http.StatusServiceUnavailable, "inference endpoint unavailable")
	case errors.As(err, &invalidErr):
		writeJSONError(w, http.StatusBadGateway, "oracle returned an unusable decision")
	default:
		zap.L().Error("unhandled request error", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func formatFromContentType(ct string) normalize.Format {
	mediaType := strings.TrimSpace(strings.Split(ct, ";")[0])
	switch strings.ToLower(mediaType) {
	case "application/json":
		return normalize.FormatJSON
	case "application/xml", "text/xml":
		return normalize.FormatXML
	default:
		return normalize.FormatAuto
	}
}

func subrogationField(cfg *rules.ModuleConfig) any {
	if t, ok := cfg.SubrogationThreshold(); ok {
		return t
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
