package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"atomagent/app/core/orchestrator/skills"
	"atomagent/app/pkg/logger"
	"atomagent/app/pkg/types"
)

type HTTPChannel struct {
	id              string
	port            int
	server          *http.Server
	manager         *skills.Manager
	statusProvider  func(context.Context) map[string]interface{}
	shutdownTimeout time.Duration
	startedUnix     atomic.Int64
	requests        atomic.Int64
}

func NewHTTPChannel(port int, manager *skills.Manager) *HTTPChannel {
	return &HTTPChannel{
		id:              "http",
		port:            port,
		manager:         manager,
		shutdownTimeout: 5 * time.Second,
	}
}

func (c *HTTPChannel) ID() string {
	return c.id
}

func (c *HTTPChannel) SetStatusProvider(provider func(context.Context) map[string]interface{}) {
	c.statusProvider = provider
}

func (c *HTTPChannel) SetShutdownTimeout(timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	c.shutdownTimeout = timeout
}

func (c *HTTPChannel) Start(ctx context.Context) error {
	c.startedUnix.Store(time.Now().Unix())

	c.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", c.port),
		Handler: c.routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.shutdownTimeout)
		defer cancel()
		if err := c.server.Shutdown(shutdownCtx); err != nil {
			logger.Error("[HTTP] Shutdown error: %v", err)
		}
	}()

	logger.Info("[HTTP] Listening on port %d...", c.port)
	if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (c *HTTPChannel) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/digest", c.skillHandler("weekly-digest", digestArgs))
	mux.HandleFunc("/api/meeting-prep", c.skillHandler("meeting-prep", meetingPrepArgs))
	mux.HandleFunc("/api/follow-ups", c.skillHandler("follow-ups", followUpArgs))
	mux.HandleFunc("/api/learning-plan", c.skillHandler("learning-plan", learningPlanArgs))
	mux.HandleFunc("/api/skills", c.handleSkills)
	mux.HandleFunc("/api/status", c.handleStatus)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

type skillRequest struct {
	UserID            string `json:"user_id"`
	TimePeriod        string `json:"time_period,omitempty"`
	MeetingIdentifier string `json:"meeting_identifier,omitempty"`
	MeetingDateTime   string `json:"meeting_date_time,omitempty"`
	ContextIdentifier string `json:"context_identifier,omitempty"`
	ContextType       string `json:"context_type,omitempty"`
	NotionDatabaseID  string `json:"notion_database_id,omitempty"`
}

func digestArgs(req skillRequest) map[string]interface{} {
	return map[string]interface{}{
		"user_id":     req.UserID,
		"time_period": req.TimePeriod,
	}
}

func meetingPrepArgs(req skillRequest) map[string]interface{} {
	return map[string]interface{}{
		"user_id":            req.UserID,
		"meeting_identifier": req.MeetingIdentifier,
		"meeting_date_time":  req.MeetingDateTime,
	}
}

func followUpArgs(req skillRequest) map[string]interface{} {
	return map[string]interface{}{
		"user_id":            req.UserID,
		"context_identifier": req.ContextIdentifier,
		"context_type":       req.ContextType,
	}
}

func learningPlanArgs(req skillRequest) map[string]interface{} {
	return map[string]interface{}{
		"user_id":            req.UserID,
		"notion_database_id": req.NotionDatabaseID,
	}
}

type errorResponse struct {
	Ok    bool              `json:"ok"`
	Error *types.SkillError `json:"error"`
}

func (c *HTTPChannel) skillHandler(skillName string, buildArgs func(skillRequest) map[string]interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, types.NewSkillError(types.ErrValidation, "Could not read request body."))
			return
		}
		defer r.Body.Close()

		var req skillRequest
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				writeError(w, http.StatusBadRequest, types.NewSkillError(types.ErrValidation, "Invalid JSON body."))
				return
			}
		}
		if strings.TrimSpace(req.UserID) == "" {
			writeError(w, http.StatusBadRequest, types.NewSkillError(types.ErrValidation, "user_id is required."))
			return
		}

		c.requests.Add(1)
		logger.Info("[HTTP] %s request %s for user %s", skillName, requestID, req.UserID)

		result, err := c.manager.Execute(r.Context(), skillName, buildArgs(req))
		if err != nil {
			logger.Error("[HTTP] %s request %s failed: %v", skillName, requestID, err)
			writeError(w, http.StatusInternalServerError, types.NewSkillError(types.ErrConfig, err.Error()))
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

type skillListResponse struct {
	Skills []types.SkillManifest `json:"skills"`
}

func (c *HTTPChannel) handleSkills(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, skillListResponse{Skills: c.manager.ListSkills()})
}

type statusResponse struct {
	ChannelID     string                 `json:"channel_id"`
	RequestsTotal int64                  `json:"requests_total"`
	StartedAt     string                 `json:"started_at,omitempty"`
	UptimeSec     int64                  `json:"uptime_sec"`
	Runtime       map[string]interface{} `json:"runtime,omitempty"`
}

func (c *HTTPChannel) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := statusResponse{
		ChannelID:     c.id,
		RequestsTotal: c.requests.Load(),
	}
	if started := c.startedUnix.Load(); started > 0 {
		startedAt := time.Unix(started, 0)
		resp.StartedAt = startedAt.Format(time.RFC3339)
		resp.UptimeSec = int64(time.Since(startedAt).Seconds())
	}
	if c.statusProvider != nil {
		resp.Runtime = c.statusProvider(r.Context())
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, skillErr *types.SkillError) {
	writeJSON(w, status, errorResponse{Ok: false, Error: skillErr})
}
