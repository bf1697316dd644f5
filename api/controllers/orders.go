package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/shopmesh/shopmesh-backend/api/middleware"
	"github.com/shopmesh/shopmesh-backend/api/responses"
	"github.com/shopmesh/shopmesh-backend/api/validators"
	ordersvc "github.com/shopmesh/shopmesh-backend/internal/orders"
	"github.com/shopmesh/shopmesh-backend/pkg/enums"
	pkgerrors "github.com/shopmesh/shopmesh-backend/pkg/errors"
	"github.com/shopmesh/shopmesh-backend/pkg/logger"
	"github.com/shopmesh/shopmesh-backend/pkg/pagination"
)

type submitOrderRequest struct {
	Items []submitOrderItem `json:"items" validate:"required,min=1,dive"`
	// Client-claimed total. Recorded on the intent but the worker recomputes
	// the amount from catalog prices.
	TotalAmount float64 `json:"totalAmount" validate:"gte=0"`
}

type submitOrderItem struct {
	ProductID string `json:"productId" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// SubmitOrder accepts an order intent and enqueues it for fulfillment. A 202
// means accepted for processing, not confirmed.
func SubmitOrder(svc *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := orderPathUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload submitOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]ordersvc.OrderIntentItem, 0, len(payload.Items))
		for _, item := range payload.Items {
			items = append(items, ordersvc.OrderIntentItem{ProductID: item.ProductID, Quantity: item.Quantity})
		}

		if err := svc.SubmitIntent(r.Context(), userID, items, payload.TotalAmount); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}

type orderListResponse struct {
	Orders     any    `json:"orders"`
	NextCursor string `json:"nextCursor,omitempty"`
}

func ListOrders(svc *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := orderPathUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		page, err := svc.ListOrders(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderListResponse{Orders: page.Orders, NextCursor: page.NextCursor})
	}
}

func GetOrder(svc *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := orderPathUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type setOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// SetOrderStatus is an admin operation. Any known status is accepted; there is
// no transition legality check.
func SetOrderStatus(svc *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.SetStatus(r.Context(), orderID, payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// orderPathUser resolves the {userID} path segment and checks the caller may
// act for that user. Admins may act for anyone.
func orderPathUser(r *http.Request) (uuid.UUID, error) {
	pathUser, err := validators.ParseUUIDParam(r, "userID")
	if err != nil {
		return uuid.Nil, err
	}

	authed, err := authedUserID(r)
	if err != nil {
		return uuid.Nil, err
	}
	if authed != pathUser && middleware.RoleFromContext(r.Context()) != string(enums.UserRoleAdmin) {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot act for another user")
	}
	return pathUser, nil
}
