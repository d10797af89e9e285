package whatsapp

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"nivaas/config"
	"nivaas/infras/otel"
	"nivaas/infras/whatsapp"
	"nivaas/internal/domains/approval/service"
	"nivaas/transport/http/response"

	"nivaas/shared/constant"
)

type Handler struct {
	service service.Approval
	cfg     *config.Config
	otel    otel.Otel
}

func New(service service.Approval, cfg *config.Config, otel otel.Otel) Handler {
	return Handler{
		service: service,
		cfg:     cfg,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/webhooks/whatsapp", func(routerGroup chi.Router) {
		routerGroup.Get("/", handler.VerifyWebhook)
		routerGroup.Post("/", handler.ReceiveEvent)
	})
}

// VerifyWebhook answers the messaging platform's subscription handshake.
func (handler *Handler) VerifyWebhook(w http.ResponseWriter, r *http.Request) {
	_, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".VerifyWebhook")
	defer scope.End()

	query := r.URL.Query()

	challenge, ok := whatsapp.VerifyWebhook(
		handler.cfg,
		query.Get("hub.mode"),
		query.Get("hub.verify_token"),
		query.Get("hub.challenge"),
	)
	if !ok {
		log.Warn().Msg("webhook verification rejected")

		w.WriteHeader(http.StatusForbidden)

		return
	}

	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte(challenge)); err != nil {
		log.Error().Err(err).Msg("failed to write webhook challenge")
	}
}

// ReceiveEvent ingests a webhook delivery. The platform retries anything that
// is not a 200, so every processable outcome answers 200; the ack body says
// what was actually done.
func (handler *Handler) ReceiveEvent(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".ReceiveEvent")
	defer scope.End()

	var event whatsapp.WebhookEvent

	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		scope.TraceError(err)
		log.Warn().Err(err).Msg("webhook delivery carried an unreadable body")

		// Still a 200: retrying a malformed payload will never succeed.
		response.WithMessage(w, http.StatusOK, "ignored")

		return
	}

	ack, err := handler.service.HandleEvent(ctx, event)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to handle webhook event")

		response.WithMessage(w, http.StatusOK, "ignored")

		return
	}

	response.WithJSON(w, http.StatusOK, ack)
}
