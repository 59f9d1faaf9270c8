package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/boijuny/chorizoventures/internal/i18n"
	"github.com/boijuny/chorizoventures/internal/middleware"
	"github.com/boijuny/chorizoventures/internal/models"
)

// NewRouter builds the API router. Unsupported methods on known routes get
// a JSON 405 envelope instead of mux's default empty body.
func NewRouter(h *ChatHandler, metrics *middleware.Metrics, logger *logrus.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.RequestLogging(logger, metrics))

	router.HandleFunc("/api/chat", h.HandleChat).Methods(http.MethodPost)
	router.HandleFunc("/api/modes", h.HandleModes).Methods(http.MethodGet)
	router.HandleFunc("/health", HandleHealth).Methods(http.MethodGet)

	router.MethodNotAllowedHandler = http.HandlerFunc(h.methodNotAllowed)
	router.NotFoundHandler = http.HandlerFunc(h.notFound)

	return router
}

func (h *ChatHandler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	lang := h.localizer.FromAcceptLanguage(r.Header.Get("Accept-Language"))
	writeJSON(w, http.StatusMethodNotAllowed, models.APIError{
		Error:   h.localizer.Get(lang, i18n.MsgMethodNotAllowed, nil),
		Details: h.localizer.Get(lang, i18n.MsgMethodNotAllowedDetails, nil),
		Code:    http.StatusMethodNotAllowed,
	})
}

func (h *ChatHandler) notFound(w http.ResponseWriter, r *http.Request) {
	lang := h.localizer.FromAcceptLanguage(r.Header.Get("Accept-Language"))
	writeJSON(w, http.StatusNotFound, models.APIError{
		Error: h.localizer.Get(lang, i18n.MsgNotFound, nil),
		Code:  http.StatusNotFound,
	})
}
