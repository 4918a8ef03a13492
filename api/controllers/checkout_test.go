package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	checkoutsvc "github.com/beloribh/belori-backend/internal/checkout"
	"github.com/beloribh/belori-backend/pkg/db/models"
)

type stubCheckoutService struct {
	checkoutFn func(ctx context.Context, input checkoutsvc.Input) (*checkoutsvc.Result, error)
}

func (s stubCheckoutService) Checkout(ctx context.Context, input checkoutsvc.Input) (*checkoutsvc.Result, error) {
	if s.checkoutFn != nil {
		return s.checkoutFn(ctx, input)
	}
	return &checkoutsvc.Result{}, nil
}

func checkoutBody() string {
	return `{
		"customer": {"name": "Joana Silva", "email": "joana@example.com", "phone": "31999990000", "document": "12345678901"},
		"address": {"street": "Rua das Flores", "number": "100", "neighborhood": "Centro", "city": "Belo Horizonte", "state": "MG", "postal_code": "30100-000"},
		"items": [{"product_id": "` + uuid.NewString() + `", "quantity": 2}],
		"shipping_method": "standard"
	}`
}

func TestCheckoutCreatesOrder(t *testing.T) {
	var captured checkoutsvc.Input
	svc := stubCheckoutService{
		checkoutFn: func(ctx context.Context, input checkoutsvc.Input) (*checkoutsvc.Result, error) {
			captured = input
			return &checkoutsvc.Result{
				Order:        &models.Order{OrderNumber: "BEL-000042"},
				PreferenceID: "pref-1",
				InitPoint:    "https://mp.example/init",
			}, nil
		},
	}

	handler := Checkout(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(checkoutBody()))
	req.Header.Set("Idempotency-Key", "key-123")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if captured.IdempotencyKey != "key-123" {
		t.Fatalf("expected idempotency key from header, got %q", captured.IdempotencyKey)
	}
	if captured.Customer.Email != "joana@example.com" {
		t.Fatalf("unexpected customer %v", captured.Customer)
	}

	var envelope struct {
		Data checkoutsvc.Result `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Order == nil || envelope.Data.Order.OrderNumber != "BEL-000042" {
		t.Fatalf("unexpected order payload %v", envelope.Data.Order)
	}
	if envelope.Data.InitPoint == "" {
		t.Fatalf("expected init point in payload")
	}
}

func TestCheckoutRejectsMissingCustomer(t *testing.T) {
	handler := Checkout(stubCheckoutService{}, nil)
	body := `{"items": [{"product_id": "` + uuid.NewString() + `", "quantity": 1}], "shipping_method": "standard"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCheckoutRejectsMalformedJSON(t *testing.T) {
	handler := Checkout(stubCheckoutService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader("{"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
