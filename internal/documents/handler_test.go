package documents

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/khovattu/khovattu/internal/rbac"
	"github.com/khovattu/khovattu/internal/shared"
)

type grants map[int64][]string

func (g grants) EffectivePermissions(_ context.Context, userID int64) ([]string, error) {
	return g[userID], nil
}

const (
	adminID int64 = 1
	staffID int64 = 2
)

func newTestRouter(t *testing.T, f *fixture) http.Handler {
	t.Helper()
	mw := rbac.Middleware{Service: grants{
		staffID: {rbac.PermReceiptsRead, rbac.PermReceiptsWrite, rbac.PermIssuesRead, rbac.PermIssuesWrite},
	}}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			switch req.Header.Get("X-Test-User") {
			case "admin":
				req = req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{UserID: adminID, Username: "admin", Roles: []string{rbac.RoleAdmin}}))
			case "staff":
				req = req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{UserID: staffID, Username: "staff", Roles: []string{rbac.RoleStaff}}))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/api/receipts", NewHandler(KindReceipt, nil, f.svc, mw).MountRoutes)
	r.Route("/api/issues", NewHandler(KindIssue, nil, f.svc, mw).MountRoutes)
	return r
}

func do(t *testing.T, h http.Handler, user, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func createdID(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id, ok := decodeBody(t, rec)["id"].(float64)
	require.True(t, ok)
	return strconv.FormatInt(int64(id), 10)
}

func TestHandlerReceiptLifecycle(t *testing.T) {
	f := newFixture(t, LockNone)
	h := newTestRouter(t, f)

	rec := do(t, h, "staff", http.MethodPost, "/api/receipts/",
		`{"code":"PN-001","warehouse_id":1,"items":[{"product_id":11,"quantity":10,"unit_cost":"12.50"}]}`)
	id := createdID(t, rec)

	rec = do(t, h, "staff", http.MethodPost, "/api/receipts/"+id+"/submit", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, "staff", http.MethodPost, "/api/receipts/"+id+"/approve", "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, "admin", http.MethodPost, "/api/receipts/"+id+"/approve", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	require.Equal(t, "approved", body["status"])
	require.NotEmpty(t, body["received_at"])
	require.NotContains(t, body, "issued_at")

	rec = do(t, h, "admin", http.MethodPost, "/api/receipts/"+id+"/approve", "")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, "staff", http.MethodDelete, "/api/receipts/"+id, "")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, "staff", http.MethodGet, "/api/receipts/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	items, ok := decodeBody(t, rec)["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	require.Contains(t, items[0], "unit_cost")

	rec = do(t, h, "staff", http.MethodGet, "/api/receipts/?status=approved", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	require.Equal(t, "PN-001", list[0]["code"])

	rec = do(t, h, "staff", http.MethodGet, "/api/receipts/"+id+"/history", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var history []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 2)
	require.Equal(t, "SUBMIT", history[0]["action"])
	require.EqualValues(t, staffID, history[0]["actor_id"])
	require.Equal(t, "APPROVE", history[1]["action"])
	require.EqualValues(t, adminID, history[1]["actor_id"])

	rec = do(t, h, "staff", http.MethodGet, "/api/receipts/999/history", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerIssueShortage(t *testing.T) {
	f := newFixture(t, LockNone)
	f.receive(t, "PN-001", w1, line(p1, 5))
	h := newTestRouter(t, f)

	rec := do(t, h, "staff", http.MethodPost, "/api/issues/",
		`{"code":"PX-001","warehouse_id":1,"items":[{"product_id":11,"quantity":8,"unit_price":"20"}]}`)
	id := createdID(t, rec)
	require.Equal(t, http.StatusNoContent, do(t, h, "staff", http.MethodPost, "/api/issues/"+id+"/submit", "").Code)

	rec = do(t, h, "admin", http.MethodPost, "/api/issues/"+id+"/approve", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	shortages, ok := decodeBody(t, rec)["shortages"].([]any)
	require.True(t, ok, rec.Body.String())
	require.Len(t, shortages, 1)
	first := shortages[0].(map[string]any)
	require.EqualValues(t, 11, first["product_id"])
	requireQty(t, 5, f.balance(t, w1, p1))
}

func TestHandlerQuickPost(t *testing.T) {
	f := newFixture(t, LockNone)
	h := newTestRouter(t, f)
	payload := `{"code":"PN-009","warehouse_id":1,"items":[{"product_id":11,"quantity":3}]}`

	rec := do(t, h, "staff", http.MethodPost, "/api/receipts/?approve=true", payload)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, "admin", http.MethodPost, "/api/receipts/?approve=true", payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "approved", decodeBody(t, rec)["status"])
	requireQty(t, 3, f.balance(t, w1, p1))
}

func TestHandlerRejectsBadRequests(t *testing.T) {
	f := newFixture(t, LockNone)
	h := newTestRouter(t, f)

	cases := []struct {
		name   string
		user   string
		method string
		path   string
		body   string
		status int
	}{
		{"no actor", "", http.MethodGet, "/api/receipts/", "", http.StatusUnauthorized},
		{"unknown field", "staff", http.MethodPost, "/api/receipts/", `{"code":"X","bogus":1}`, http.StatusBadRequest},
		{"empty items", "staff", http.MethodPost, "/api/receipts/", `{"code":"X","warehouse_id":1,"items":[]}`, http.StatusBadRequest},
		{"zero quantity", "staff", http.MethodPost, "/api/issues/", `{"code":"X","warehouse_id":1,"items":[{"product_id":11,"quantity":0}]}`, http.StatusBadRequest},
		{"cost on issue", "staff", http.MethodPost, "/api/issues/", `{"code":"X","warehouse_id":1,"items":[{"product_id":11,"quantity":1,"unit_cost":"1"}]}`, http.StatusBadRequest},
		{"issued_at on receipt", "staff", http.MethodPost, "/api/receipts/", `{"code":"X","warehouse_id":1,"issued_at":"2024-01-01T00:00:00Z","items":[{"product_id":11,"quantity":1}]}`, http.StatusBadRequest},
		{"bad id", "staff", http.MethodGet, "/api/receipts/abc", "", http.StatusBadRequest},
		{"missing", "staff", http.MethodGet, "/api/issues/404", "", http.StatusNotFound},
		{"approve missing", "admin", http.MethodPost, "/api/issues/404/approve", "", http.StatusNotFound},
		{"bad status filter", "staff", http.MethodGet, "/api/issues/?status=done", "", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, tc.user, tc.method, tc.path, tc.body)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestHandlerDuplicateCode(t *testing.T) {
	f := newFixture(t, LockNone)
	h := newTestRouter(t, f)
	payload := `{"code":"PN-001","warehouse_id":1,"items":[{"product_id":11,"quantity":1}]}`

	createdID(t, do(t, h, "staff", http.MethodPost, "/api/receipts/", payload))
	rec := do(t, h, "staff", http.MethodPost, "/api/receipts/", payload)
	require.Equal(t, http.StatusConflict, rec.Code)
}
