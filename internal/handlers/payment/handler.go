package payment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"nivaas/config"
	"nivaas/infras/otel"
	"nivaas/internal/domains/payment/model/dto"
	"nivaas/internal/domains/payment/service"
	"nivaas/shared/constant"
	"nivaas/shared/validator"
	"nivaas/transport/http/response"
)

// callbackPage is rendered back to the gateway's browser redirect. It shows
// the outcome and forwards the guest to the frontend.
var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="5;url={{.RedirectURL}}">
<title>Payment {{.PaymentStatus}}</title>
</head>
<body>
<h2>Payment {{.PaymentStatus}}</h2>
<p>{{.Message}}</p>
<p>You will be redirected shortly. If not, <a href="{{.RedirectURL}}">click here</a>.</p>
</body>
</html>`))

type Handler struct {
	service service.Payment
	cfg     *config.Config
	otel    otel.Otel
}

func New(service service.Payment, cfg *config.Config, otel otel.Otel) Handler {
	return Handler{
		service: service,
		cfg:     cfg,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/payments", func(routerGroup chi.Router) {
		routerGroup.Post("/initiate", handler.InitiatePayment)
		routerGroup.Post("/callback", handler.PaymentCallback)
	})
}

// InitiatePayment prepares a signed payment intent for a booking.
func (handler *Handler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".InitiatePayment")
	defer scope.End()

	req := dto.InitiatePaymentRequest{}

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	intent, err := handler.service.Initiate(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to initiate payment")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Payment intent prepared")

	response.WithJSON(w, http.StatusOK, intent)
}

// PaymentCallback receives the gateway's post-payment callback. The gateway
// posts an HTML form; some integrations send JSON instead, so both are
// accepted. The answer is always an HTML page for the guest's browser.
func (handler *Handler) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".PaymentCallback")
	defer scope.End()

	params, err := callbackParams(r)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to parse callback payload")

		renderCallbackPage(w, http.StatusBadRequest, dto.CallbackResult{
			PaymentStatus: "error",
			Message:       "could not read the gateway response",
			RedirectURL:   handler.cfg.App.FrontendURL,
		})

		return
	}

	result, err := handler.service.ProcessCallback(ctx, params)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to process payment callback")

		renderCallbackPage(w, http.StatusBadRequest, dto.CallbackResult{
			PaymentStatus: "error",
			Message:       err.Error(),
			RedirectURL:   handler.cfg.App.FrontendURL,
		})

		return
	}

	scope.AddEvent("Payment callback processed")

	renderCallbackPage(w, http.StatusOK, result)
}

func callbackParams(r *http.Request) (map[string]string, error) {
	contentType := r.Header.Get(constant.RequestHeaderContentType)

	if strings.Contains(contentType, constant.ContentTypeJSON) {
		params := map[string]string{}

		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			return nil, fmt.Errorf("failed to decode callback body: %w", err)
		}

		return params, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err //nolint:wrapcheck
	}

	params := make(map[string]string, len(r.PostForm))
	for key := range r.PostForm {
		params[key] = r.PostForm.Get(key)
	}

	return params, nil
}

func renderCallbackPage(w http.ResponseWriter, code int, result dto.CallbackResult) {
	var buf bytes.Buffer

	if err := callbackPage.Execute(&buf, result); err != nil {
		log.Error().Err(err).Msg("failed to render callback page")

		response.WithError(w, err)

		return
	}

	response.WithHTML(w, code, buf.Bytes())
}
