package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/boijuny/chorizoventures/internal/config"
	"github.com/boijuny/chorizoventures/internal/i18n"
	"github.com/boijuny/chorizoventures/internal/middleware"
	"github.com/boijuny/chorizoventures/internal/models"
	"github.com/boijuny/chorizoventures/internal/personality"
	"github.com/boijuny/chorizoventures/internal/ratelimit"
	"github.com/boijuny/chorizoventures/internal/services/ai"
	"github.com/boijuny/chorizoventures/internal/services/cache"
	"github.com/boijuny/chorizoventures/pkg/markdown"
)

// maxMessageBytes caps the user message size before it reaches upstream.
const maxMessageBytes = 4096

// ChatHandler handles the chat pipeline: rate gate, validation, mode
// resolution, upstream call, response mapping.
type ChatHandler struct {
	cfg       *config.Config
	aiService ai.Service
	limiter   ratelimit.Limiter
	cache     cache.Service
	localizer *i18n.Localizer
	metrics   *middleware.Metrics
	logger    *logrus.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(
	cfg *config.Config,
	aiService ai.Service,
	limiter ratelimit.Limiter,
	cacheService cache.Service,
	localizer *i18n.Localizer,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *ChatHandler {
	return &ChatHandler{
		cfg:       cfg,
		aiService: aiService,
		limiter:   limiter,
		cache:     cacheService,
		localizer: localizer,
		metrics:   metrics,
		logger:    logger,
	}
}

// HandleChat processes POST /api/chat.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := h.localizer.FromAcceptLanguage(r.Header.Get("Accept-Language"))

	// Rate gate before the body is even read.
	key := clientKey(r)
	allowed, err := h.limiter.Allow(ctx, key)
	if err != nil {
		// A broken limiter store should not take the site down; admit and log.
		h.logger.WithError(err).WithField("key", key).Warn("Rate limit store unavailable, admitting request")
		allowed = true
	}
	if !allowed {
		h.metrics.RecordRateLimitRejection()
		h.writeError(w, lang, http.StatusTooManyRequests, i18n.MsgRateLimitExceeded, i18n.MsgRateLimitDetails, nil)
		return
	}

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, lang, http.StatusBadRequest, i18n.MsgInvalidRequest, i18n.MsgInvalidBody, nil)
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" || req.Mode == "" {
		h.writeError(w, lang, http.StatusBadRequest, i18n.MsgInvalidRequest, i18n.MsgMissingFields, nil)
		return
	}
	if len(message) > maxMessageBytes {
		h.writeError(w, lang, http.StatusBadRequest, i18n.MsgInvalidRequest, i18n.MsgMessageTooLong, nil)
		return
	}

	mode, profile, err := personality.Resolve(req.Mode)
	if err != nil {
		h.metrics.RecordChatRequest(req.Mode, "invalid_mode")
		h.writeError(w, lang, http.StatusBadRequest, i18n.MsgInvalidRequest, i18n.MsgInvalidMode,
			map[string]interface{}{"Modes": personality.Accepted()})
		return
	}

	for _, turn := range req.History {
		if (turn.Role != "user" && turn.Role != "assistant") || strings.TrimSpace(turn.Content) == "" {
			h.writeError(w, lang, http.StatusBadRequest, i18n.MsgInvalidRequest, i18n.MsgInvalidHistory, nil)
			return
		}
	}

	// Only history-free turns are cacheable: a reply that depends on prior
	// context must not leak into another conversation.
	if len(req.History) == 0 {
		if answer, ok := h.cache.Get(ctx, string(mode), message); ok {
			h.metrics.RecordCacheHit()
			h.metrics.RecordChatRequest(string(mode), "success")
			h.respond(w, &req, mode, answer)
			return
		}
		h.metrics.RecordCacheMiss()
	}

	messages := make([]models.Message, 0, len(req.History)+2)
	messages = append(messages, models.Message{Role: "system", Content: profile.SystemPrompt})
	messages = append(messages, req.History...)
	messages = append(messages, models.Message{Role: "user", Content: message})

	start := time.Now()
	reply, err := h.aiService.Complete(ctx, messages, profile.Sampling)
	if err != nil {
		h.metrics.RecordUpstreamRequest(h.cfg.Upstream.Model, "error", time.Since(start))
		h.metrics.RecordChatRequest(string(mode), "error")
		h.logger.WithError(err).WithFields(logrus.Fields{
			"mode": mode,
			"key":  key,
		}).Error("Chat request failed")

		details := err.Error()
		if details == "" {
			details = h.localizer.Get(lang, i18n.MsgInternalErrorDetails, nil)
		}
		writeJSON(w, http.StatusInternalServerError, models.APIError{
			Error:   h.localizer.Get(lang, i18n.MsgInternalError, nil),
			Details: details,
			Code:    http.StatusInternalServerError,
		})
		return
	}
	h.metrics.RecordUpstreamRequest(h.cfg.Upstream.Model, "success", time.Since(start))

	if strings.TrimSpace(reply) == "" {
		// An upstream 200 with nothing in it is not a failure; every mode
		// has a scripted reply for this.
		reply = profile.Fallback
	} else if len(req.History) == 0 {
		if err := h.cache.Set(ctx, string(mode), message, reply); err != nil {
			h.logger.WithError(err).Warn("Failed to cache completion")
		}
	}

	h.metrics.RecordChatRequest(string(mode), "success")
	h.respond(w, &req, mode, reply)
}

func (h *ChatHandler) respond(w http.ResponseWriter, req *models.ChatRequest, mode personality.Mode, reply string) {
	resp := models.ChatResponse{
		Response:       reply,
		Mode:           string(mode),
		ConversationID: req.ConversationID,
		TokensUsed:     utf8.RuneCountInString(reply),
	}
	if req.Format == "html" {
		resp.ResponseHTML = markdown.ToWidgetHTML(reply)
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleModes serves GET /api/modes for the widget's mode selector.
func (h *ChatHandler) HandleModes(w http.ResponseWriter, r *http.Request) {
	modes := make([]models.ModeInfo, 0, len(personality.Modes()))
	for _, m := range personality.Modes() {
		profile, ok := personality.Lookup(m)
		if !ok {
			continue
		}
		modes = append(modes, models.ModeInfo{
			ID:          string(m),
			Label:       profile.Label,
			Description: profile.Description,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"modes": modes})
}

func (h *ChatHandler) writeError(w http.ResponseWriter, lang string, status int, errorID, detailsID string, data map[string]interface{}) {
	writeJSON(w, status, models.APIError{
		Error:   h.localizer.Get(lang, errorID, nil),
		Details: h.localizer.Get(lang, detailsID, data),
		Code:    status,
	})
}

// clientKey extracts the client identifier used for rate limiting. All
// clients without a forwarded-for header share the "unknown" bucket.
func clientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			xff = xff[:i]
		}
		if xff = strings.TrimSpace(xff); xff != "" {
			return xff
		}
	}
	return "unknown"
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
