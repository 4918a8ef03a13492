package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/beloribh/belori-backend/api/responses"
	"github.com/beloribh/belori-backend/pkg/logger"
	"github.com/beloribh/belori-backend/pkg/mercadopago"
)

const maxNotificationBody = 1 << 20

type mercadoPagoWebhookService interface {
	HandleNotification(ctx context.Context, notification mercadopago.WebhookNotification) error
}

// MercadoPagoWebhook receives payment notifications. Mercado Pago retries on
// any non-2xx, so this handler always answers 200: processing failures release
// the dedup mark and the retry does the work.
func MercadoPagoWebhook(svc mercadoPagoWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			if logg != nil {
				logg.Warn(ctx, "webhook service unavailable, notification dropped")
			}
			responses.WriteSuccess(w, nil)
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxNotificationBody))
		if err != nil {
			if logg != nil {
				logg.Error(ctx, "read webhook body", err)
			}
			responses.WriteSuccess(w, nil)
			return
		}

		var notification mercadopago.WebhookNotification
		if err := json.Unmarshal(payload, &notification); err != nil {
			if logg != nil {
				logg.Error(ctx, "decode webhook payload", err)
			}
			responses.WriteSuccess(w, nil)
			return
		}

		if err := svc.HandleNotification(ctx, notification); err != nil && logg != nil {
			logg.Error(ctx, "process webhook notification", err)
		}
		responses.WriteSuccess(w, nil)
	}
}
