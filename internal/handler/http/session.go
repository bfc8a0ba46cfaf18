package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/domain"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/service"
	apperrors "github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/errors"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/httputil"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/logger"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/validator"
)

// maxHistoryLimit caps the limit query parameter of history endpoints.
const maxHistoryLimit = 50

// SessionHandler handles HTTP requests for storefront sessions.
type SessionHandler struct {
	registry *service.Registry
	catalog  *service.Catalog
	logger   *slog.Logger
}

// NewSessionHandler creates a new session HTTP handler.
func NewSessionHandler(registry *service.Registry, catalog *service.Catalog, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		registry: registry,
		catalog:  catalog,
		logger:   logger,
	}
}

// --- Request / response DTOs ---

// ComparePanelRequest is the JSON request body for showing or hiding the compare panel.
type ComparePanelRequest struct {
	Open *bool `json:"open" validate:"required"`
}

// SessionResponse describes a session.
type SessionResponse struct {
	SessionID      string     `json:"session_id"`
	SignedIn       bool       `json:"signed_in"`
	UserID         string     `json:"user_id,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	WishlistCount  int        `json:"wishlist_count"`
	CompareCount   int        `json:"compare_count"`
	PendingNotices int        `json:"pending_notices"`
}

// WishlistResponse lists wishlisted products.
type WishlistResponse struct {
	ProductIDs []string         `json:"product_ids"`
	Products   []domain.Product `json:"products,omitempty"`
	Status     service.Status   `json:"status"`
}

// MembershipResponse reports whether a product is wishlisted.
type MembershipResponse struct {
	ProductID string `json:"product_id"`
	Member    bool   `json:"member"`
}

// ViewsResponse lists browsing history records.
type ViewsResponse struct {
	Items  []domain.ViewRecord `json:"items"`
	Status service.Status      `json:"status"`
}

// CategoriesResponse lists preferred categories, most viewed first.
type CategoriesResponse struct {
	Categories []string       `json:"categories"`
	Status     service.Status `json:"status"`
}

// RecordViewResponse reports how a view was handled.
type RecordViewResponse struct {
	ProductID string         `json:"product_id"`
	Status    service.Status `json:"status"`
}

// --- Sessions ---

// CreateSession handles POST /api/v1/sessions. A bearer token, when given,
// signs the new session in.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.registry.Create(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if token, ok := httputil.BearerToken(r); ok {
		if _, err := s.Identity.SignIn(r.Context(), token); err != nil {
			_ = h.registry.Close(s.ID)
			httputil.WriteError(w, r, err, h.logger)
			return
		}
	}

	httputil.WriteData(w, http.StatusCreated, describe(s))
}

// GetSession handles GET /api/v1/sessions/{sid}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, describe(sessionFromContext(r.Context())))
}

// CloseSession handles DELETE /api/v1/sessions/{sid}
func (h *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	if err := h.registry.Close(s.ID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SignIn handles PUT /api/v1/sessions/{sid}/identity
func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	token, ok := httputil.BearerToken(r)
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("bearer token required"), h.logger)
		return
	}

	s := sessionFromContext(r.Context())
	if _, err := s.Identity.SignIn(r.Context(), token); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, describe(s))
}

// SignOut handles DELETE /api/v1/sessions/{sid}/identity
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	sessionFromContext(r.Context()).Identity.SignOut(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func describe(s *service.Session) SessionResponse {
	resp := SessionResponse{
		SessionID:      s.ID,
		WishlistCount:  len(s.Wishlist.Items()),
		CompareCount:   len(s.Compare.Items()),
		PendingNotices: s.Notices.Len(),
	}
	if cur, ok := s.Identity.Current(); ok {
		resp.SignedIn = true
		resp.UserID = cur.UserID
		exp := cur.ExpiresAt.UTC()
		resp.ExpiresAt = &exp
	}
	return resp
}

// --- Wishlist ---

// ListWishlist handles GET /api/v1/sessions/{sid}/wishlist. With
// ?expand=products the product snapshots are included.
func (h *SessionHandler) ListWishlist(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	ids, res := s.Wishlist.FetchAll(r.Context())

	resp := WishlistResponse{ProductIDs: ids, Status: res.Status}
	if r.URL.Query().Get("expand") == "products" && len(ids) > 0 {
		products, err := h.catalog.Products(r.Context(), ids)
		if err != nil {
			logger.FromContext(r.Context()).WarnContext(r.Context(), "failed to expand wishlist products",
				slog.String("error", err.Error()),
			)
		} else {
			resp.Products = products
		}
	}
	httputil.WriteData(w, http.StatusOK, resp)
}

// WishlistMembership handles GET /api/v1/sessions/{sid}/wishlist/{productId}
func (h *SessionHandler) WishlistMembership(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseProductID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}
	s := sessionFromContext(r.Context())
	httputil.WriteData(w, http.StatusOK, MembershipResponse{ProductID: productID, Member: s.Wishlist.IsMember(productID)})
}

// ToggleWishlist handles POST /api/v1/sessions/{sid}/wishlist/{productId}
func (h *SessionHandler) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseProductID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}
	s := sessionFromContext(r.Context())
	if res := s.Wishlist.Toggle(r.Context(), productID); !res.OK() {
		writeResult(w, r, res)
		return
	}
	httputil.WriteData(w, http.StatusOK, MembershipResponse{ProductID: productID, Member: s.Wishlist.IsMember(productID)})
}

// --- Compare ---

// GetCompare handles GET /api/v1/sessions/{sid}/compare
func (h *SessionHandler) GetCompare(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, sessionFromContext(r.Context()).Compare.Snapshot())
}

// AddCompareSnapshot handles POST /api/v1/sessions/{sid}/compare with a
// product snapshot in the body.
func (h *SessionHandler) AddCompareSnapshot(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if err := validator.DecodeAndValidate(r, &p); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	s := sessionFromContext(r.Context())
	if res := s.Compare.Add(p); !res.OK() {
		writeResult(w, r, res)
		return
	}
	httputil.WriteData(w, http.StatusOK, s.Compare.Snapshot())
}

// AddCompare handles POST /api/v1/sessions/{sid}/compare/{productId}
func (h *SessionHandler) AddCompare(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseProductID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}
	s := sessionFromContext(r.Context())
	if res := s.Compare.AddByID(r.Context(), productID); !res.OK() {
		writeResult(w, r, res)
		return
	}
	httputil.WriteData(w, http.StatusOK, s.Compare.Snapshot())
}

// RemoveCompare handles DELETE /api/v1/sessions/{sid}/compare/{productId}
func (h *SessionHandler) RemoveCompare(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseProductID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}
	sessionFromContext(r.Context()).Compare.Remove(productID)
	w.WriteHeader(http.StatusNoContent)
}

// ClearCompare handles DELETE /api/v1/sessions/{sid}/compare
func (h *SessionHandler) ClearCompare(w http.ResponseWriter, r *http.Request) {
	sessionFromContext(r.Context()).Compare.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// SetComparePanel handles PUT /api/v1/sessions/{sid}/compare/panel
func (h *SessionHandler) SetComparePanel(w http.ResponseWriter, r *http.Request) {
	var req ComparePanelRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	s := sessionFromContext(r.Context())
	s.Compare.SetOpen(*req.Open)
	httputil.WriteData(w, http.StatusOK, s.Compare.Snapshot())
}

// --- History ---

// RecordView handles POST /api/v1/sessions/{sid}/history/{productId}. It
// always answers 202: a failed view never fails the page.
func (h *SessionHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseProductID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}
	res := sessionFromContext(r.Context()).History.RecordView(r.Context(), productID)
	httputil.WriteData(w, http.StatusAccepted, RecordViewResponse{ProductID: productID, Status: res.Status})
}

// RecentlyViewed handles GET /api/v1/sessions/{sid}/history/recent
func (h *SessionHandler) RecentlyViewed(w http.ResponseWriter, r *http.Request) {
	limit, ok := httputil.ParseLimit(w, r, maxHistoryLimit)
	if !ok {
		return
	}
	recs, res := sessionFromContext(r.Context()).History.RecentlyViewed(r.Context(), limit)
	httputil.WriteData(w, http.StatusOK, ViewsResponse{Items: recs, Status: res.Status})
}

// MostViewed handles GET /api/v1/sessions/{sid}/history/most-viewed
func (h *SessionHandler) MostViewed(w http.ResponseWriter, r *http.Request) {
	limit, ok := httputil.ParseLimit(w, r, maxHistoryLimit)
	if !ok {
		return
	}
	recs, res := sessionFromContext(r.Context()).History.MostViewed(r.Context(), limit)
	httputil.WriteData(w, http.StatusOK, ViewsResponse{Items: recs, Status: res.Status})
}

// PreferredCategories handles GET /api/v1/sessions/{sid}/history/categories
func (h *SessionHandler) PreferredCategories(w http.ResponseWriter, r *http.Request) {
	categories, res := sessionFromContext(r.Context()).History.PreferredCategories(r.Context())
	httputil.WriteData(w, http.StatusOK, CategoriesResponse{Categories: categories, Status: res.Status})
}

// --- Notices ---

// DrainNotices handles GET /api/v1/sessions/{sid}/notices. Notices are
// returned once, oldest first.
func (h *SessionHandler) DrainNotices(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, sessionFromContext(r.Context()).Notices.Drain())
}

// writeResult writes the error envelope for a store Result that did not
// succeed.
func writeResult(w http.ResponseWriter, r *http.Request, res service.Result) {
	status, code, message := http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"

	switch res.Status {
	case service.StatusUnauthenticated:
		status, code, message = http.StatusUnauthorized, "SIGN_IN_REQUIRED", "sign in to use this feature"
	case service.StatusRejected:
		status, code, message = http.StatusConflict, "REJECTED", "request rejected"
		switch res.Reason {
		case domain.NoticeCompareFull:
			code, message = "COMPARE_FULL", "compare list already holds the maximum number of products"
		case domain.NoticeAlreadyComparing:
			code, message = "ALREADY_COMPARING", "product is already in the compare list"
		case domain.NoticeProductNotFound:
			status, code, message = http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found"
		}
	case service.StatusStorageFailure:
		status, code, message = http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "storage unavailable, retry later"
	case service.StatusDiscarded:
		status, code, message = http.StatusConflict, "SESSION_CHANGED", "session changed while the request was in flight"
	}

	httputil.WriteJSON(w, status, httputil.Response{
		Error: &httputil.ErrorResponse{
			Code:      code,
			Message:   message,
			RequestID: logger.CorrelationIDFromContext(r.Context()),
		},
	})
}
