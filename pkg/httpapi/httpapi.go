package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	contractx "github.com/afquintero/cierre-agent/agent/contract"
	routerx "github.com/afquintero/cierre-agent/agent/router"
	datalakex "github.com/afquintero/cierre-agent/pkg/datalake"
)

// Server is the thin HTTP surface over the routing agent: a chat endpoint
// for the UI, a commercial-close summary passthrough for the chart page,
// health and metrics.
type Server struct {
	agent     *routerx.Router
	lake      *datalakex.Client
	lakeCfg   datalakex.Config
	llmClient *openaisdk.Client
}

func New(agent *routerx.Router, lake *datalakex.Client, lakeCfg datalakex.Config, llmClient *openaisdk.Client) *Server {
	return &Server{
		agent:     agent,
		lake:      lake,
		lakeCfg:   lakeCfg,
		llmClient: llmClient,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/cierres", s.handleCierres)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	reply, err := s.agent.Respond(r.Context(), req.SessionID, req.Message)
	if err != nil {
		if errors.Is(err, contractx.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Error().Str("session_id", req.SessionID).Err(err).Msg("turn failed")
		writeJSON(w, http.StatusInternalServerError, chatResponse{Reply: routerx.GenericErrorReply})
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

// handleCierres proxies the commercial-close summary export so the chart
// page does not need datalake credentials of its own.
func (s *Server) handleCierres(w http.ResponseWriter, r *http.Request) {
	body, err := s.lake.Fetch(r.Context(), s.lakeCfg.ResumenCierreURL)
	if err != nil {
		log.Error().Err(err).Msg("commercial close summary fetch failed")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "summary unavailable"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.llmClient != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()
		if _, err := s.llmClient.Models.List(ctx); err != nil {
			log.Warn().Err(err).Msg("llm reachability check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "llm unreachable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("write response failed")
	}
}
