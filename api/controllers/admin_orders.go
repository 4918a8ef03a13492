package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/beloribh/belori-backend/api/middleware"
	"github.com/beloribh/belori-backend/api/responses"
	"github.com/beloribh/belori-backend/api/validators"
	internalorders "github.com/beloribh/belori-backend/internal/orders"
	"github.com/beloribh/belori-backend/pkg/db/models"
	"github.com/beloribh/belori-backend/pkg/enums"
	pkgerrors "github.com/beloribh/belori-backend/pkg/errors"
	"github.com/beloribh/belori-backend/pkg/logger"
	"github.com/beloribh/belori-backend/pkg/pagination"
)

// AdminOrdersList returns a filtered, cursor-paginated order listing.
func AdminOrdersList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := internalorders.ListFilters{
			CustomerEmail: strings.TrimSpace(r.URL.Query().Get("customer_email")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, parseErr := enums.ParseOrderStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status filter"))
				return
			}
			filters.Status = status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("payment_status")); raw != "" {
			status, parseErr := enums.ParsePaymentStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid payment status filter"))
				return
			}
			filters.PaymentStatus = status
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		list, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type adminOrderDetail struct {
	Order  *models.Order       `json:"order"`
	Events []models.OrderEvent `json:"events"`
}

// AdminOrderDetail returns the full order with line items and its event log.
func AdminOrderDetail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := orderIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		events, err := svc.History(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, adminOrderDetail{Order: order, Events: events})
	}
}

type confirmPaymentRequest struct {
	PaymentID string `json:"payment_id" validate:"required"`
}

// AdminConfirmPayment manually confirms a payment the webhook never
// delivered. It shares the paid transition with the webhook path, so a
// confirmation racing a webhook still decrements stock exactly once.
func AdminConfirmPayment(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := orderIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload confirmPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.MarkPaid(r.Context(), internalorders.MarkPaidInput{
			OrderID:       orderID,
			PaymentID:     payload.PaymentID,
			PaymentStatus: enums.PaymentStatusApproved,
			Actor:         adminActor(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"order":        result.Order,
			"transitioned": result.Transitioned,
		})
	}
}

type shipOrderRequest struct {
	TrackingCode string `json:"tracking_code" validate:"required"`
	TrackingURL  string `json:"tracking_url" validate:"omitempty,url"`
}

// AdminShipOrder moves a processing order to shipped with its tracking code
// and, when the carrier provides one, the tracking link.
func AdminShipOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload shipOrderRequest
		transitionOrder(svc, logg, w, r, &payload, func(orderID uuid.UUID) internalorders.TransitionInput {
			return internalorders.TransitionInput{
				OrderID:      orderID,
				Target:       enums.OrderStatusShipped,
				TrackingCode: payload.TrackingCode,
				TrackingURL:  payload.TrackingURL,
				Actor:        adminActor(r),
			}
		})
	}
}

// AdminStartProcessing moves a paid order into fulfillment.
func AdminStartProcessing(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		transitionOrder(svc, logg, w, r, nil, func(orderID uuid.UUID) internalorders.TransitionInput {
			return internalorders.TransitionInput{
				OrderID: orderID,
				Target:  enums.OrderStatusProcessing,
				Actor:   adminActor(r),
			}
		})
	}
}

// AdminDeliverOrder marks a shipped order as delivered.
func AdminDeliverOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		transitionOrder(svc, logg, w, r, nil, func(orderID uuid.UUID) internalorders.TransitionInput {
			return internalorders.TransitionInput{
				OrderID: orderID,
				Target:  enums.OrderStatusDelivered,
				Actor:   adminActor(r),
			}
		})
	}
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// AdminCancelOrder cancels an order, restocking when payment was captured.
func AdminCancelOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload reasonRequest
		transitionOrder(svc, logg, w, r, &payload, func(orderID uuid.UUID) internalorders.TransitionInput {
			return internalorders.TransitionInput{
				OrderID: orderID,
				Target:  enums.OrderStatusCancelled,
				Reason:  payload.Reason,
				Actor:   adminActor(r),
			}
		})
	}
}

// AdminRefundOrder records a refund. Stock is not restored: refunded goods
// do not go back on the shelf automatically.
func AdminRefundOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload reasonRequest
		transitionOrder(svc, logg, w, r, &payload, func(orderID uuid.UUID) internalorders.TransitionInput {
			return internalorders.TransitionInput{
				OrderID: orderID,
				Target:  enums.OrderStatusRefunded,
				Reason:  payload.Reason,
				Actor:   adminActor(r),
			}
		})
	}
}

func transitionOrder(
	svc internalorders.Service,
	logg *logger.Logger,
	w http.ResponseWriter,
	r *http.Request,
	payload any,
	build func(orderID uuid.UUID) internalorders.TransitionInput,
) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
		return
	}

	orderID, err := orderIDFromPath(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}

	if payload != nil {
		if err := validators.DecodeJSONBody(r, payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
	}

	order, err := svc.Transition(r.Context(), build(orderID))
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, order)
}

func orderIDFromPath(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}

func adminActor(r *http.Request) string {
	if email := middleware.AdminEmailFromContext(r.Context()); email != "" {
		return email
	}
	return "admin"
}
