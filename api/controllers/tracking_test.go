package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/beloribh/belori-backend/internal/tracking"
	pkgerrors "github.com/beloribh/belori-backend/pkg/errors"
)

type stubTrackingService struct {
	trackFn        func(ctx context.Context, orderNumber string) (*tracking.View, error)
	trackByEmailFn func(ctx context.Context, email string) ([]tracking.View, error)
}

func (s stubTrackingService) Track(ctx context.Context, orderNumber string) (*tracking.View, error) {
	if s.trackFn != nil {
		return s.trackFn(ctx, orderNumber)
	}
	return &tracking.View{}, nil
}

func (s stubTrackingService) TrackByEmail(ctx context.Context, email string) ([]tracking.View, error) {
	if s.trackByEmailFn != nil {
		return s.trackByEmailFn(ctx, email)
	}
	return nil, nil
}

func trackingRequest(orderNumber string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("orderNumber", orderNumber)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestTrackOrderReturnsView(t *testing.T) {
	svc := stubTrackingService{
		trackFn: func(ctx context.Context, orderNumber string) (*tracking.View, error) {
			if orderNumber != "BEL-000042" {
				t.Fatalf("unexpected order number %s", orderNumber)
			}
			return &tracking.View{
				OrderNumber:   orderNumber,
				CustomerName:  "Joana Lima",
				CustomerEmail: "joana@example.com",
			}, nil
		},
	}

	handler := TrackOrder(svc, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, trackingRequest("BEL-000042"))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data tracking.View `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.CustomerEmail != "joana@example.com" {
		t.Fatalf("expected full email got %s", envelope.Data.CustomerEmail)
	}
}

func TestTrackOrdersByEmailReturnsList(t *testing.T) {
	svc := stubTrackingService{
		trackByEmailFn: func(ctx context.Context, email string) ([]tracking.View, error) {
			if email != "joana@example.com" {
				t.Fatalf("unexpected email %s", email)
			}
			return []tracking.View{
				{OrderNumber: "BEL-000002", CustomerEmail: "jo***@example.com"},
				{OrderNumber: "BEL-000001", CustomerEmail: "jo***@example.com"},
			}, nil
		},
	}

	handler := TrackOrdersByEmail(svc, nil)
	req := httptest.NewRequest(http.MethodGet, "/?email=joana@example.com", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			Orders []tracking.View `json:"orders"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Orders) != 2 {
		t.Fatalf("expected 2 orders got %d", len(envelope.Data.Orders))
	}
	if envelope.Data.Orders[0].CustomerEmail != "jo***@example.com" {
		t.Fatalf("expected masked email got %s", envelope.Data.Orders[0].CustomerEmail)
	}
}

func TestTrackOrdersByEmailRejectsMissingEmail(t *testing.T) {
	svc := stubTrackingService{
		trackByEmailFn: func(ctx context.Context, email string) ([]tracking.View, error) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
		},
	}

	handler := TrackOrdersByEmail(svc, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestTrackOrderMapsNotFound(t *testing.T) {
	svc := stubTrackingService{
		trackFn: func(ctx context.Context, orderNumber string) (*tracking.View, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		},
	}

	handler := TrackOrder(svc, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, trackingRequest("BEL-999999"))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
