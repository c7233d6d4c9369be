package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mamadbah2/farmdesk/internal/access"
	"github.com/mamadbah2/farmdesk/internal/database/dbtest"
	"github.com/mamadbah2/farmdesk/internal/datatable"
	"github.com/mamadbah2/farmdesk/internal/domain/models"
	"github.com/mamadbah2/farmdesk/internal/grids"
	"github.com/mamadbah2/farmdesk/internal/metrics"
	"github.com/mamadbah2/farmdesk/internal/repository/cache"
	"github.com/mamadbah2/farmdesk/internal/repository/store"
	"github.com/mamadbah2/farmdesk/internal/server/handlers"
	"github.com/mamadbah2/farmdesk/internal/service/bookkeeping"
	"github.com/mamadbah2/farmdesk/internal/service/masterdata"
	"github.com/mamadbah2/farmdesk/internal/service/reporting"
	"github.com/mamadbah2/farmdesk/pkg/authtoken"
)

type testServer struct {
	t        *testing.T
	db       *gorm.DB
	mr       *miniredis.Miniredis
	engine   http.Handler
	admin    string
	operator string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := dbtest.Open(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	users := []models.User{
		{Name: "Admin", Email: "admin@example.com", Role: string(access.RoleSuperAdmin), Active: true},
		{Name: "Sari", Email: "sari@example.com", Role: string(access.RoleOperator), Active: true},
	}
	require.NoError(t, db.Create(&users).Error)

	m := metrics.New(prometheus.NewRegistry())
	counts := cache.NewCountCache(rdb, time.Minute, nil)
	tokens, err := authtoken.NewManager("test-secret", time.Hour)
	require.NoError(t, err)

	engine := datatable.NewEngine(db, grids.Registry(nil), nil, datatable.WithCountCache(counts), datatable.WithObserver(m))
	books := bookkeeping.NewService(db, nil, bookkeeping.WithObserver(m))
	h := Handlers{
		Auth:        handlers.NewAuthHandler(tokens, cache.NewRevocations(rdb), store.NewUsers(db), nil),
		DataTables:  handlers.NewDataTableHandler(engine, nil),
		MasterData:  handlers.NewMasterDataHandler(masterdata.NewService(db, counts, nil), nil),
		Bookkeeping: handlers.NewBookkeepingHandler(books, counts, nil),
		Reports:     handlers.NewReportHandler(reporting.NewService(db, nil), nil),
		Metrics:     m,
		MetricsPage: m.Handler(),
	}

	s := &testServer{t: t, db: db, mr: mr, engine: New(h, nil)}
	s.admin, _, err = tokens.Issue(users[0].ID)
	require.NoError(t, err)
	s.operator, _, err = tokens.Issue(users[1].ID)
	require.NoError(t, err)
	return s
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rec = s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "farmdesk_http_requests_total")
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/me", "garbage", nil).Code)

	rec := s.do(http.MethodGet, "/api/v1/me", s.operator, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[map[string]any](t, rec)
	assert.Equal(t, "Operator", me["role"])
	assert.Equal(t, false, me["all_farms"])

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodPost, "/api/v1/logout", s.operator, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/me", s.operator, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/me", s.admin, nil).Code)
}

func TestAuthenticationFailsClosedWithoutRevocations(t *testing.T) {
	s := newTestServer(t)

	s.mr.SetError("ERR connection refused")
	rec := s.do(http.MethodGet, "/api/v1/me", s.operator, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "cannot verify token")

	s.mr.SetError("")
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/me", s.operator, nil).Code)
}

func TestMasterDataRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/v1/farms", s.admin, map[string]any{"code": "F-01", "name": "North Hill"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	farm := decode[models.Farm](t, rec)

	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/api/v1/farms", s.admin, map[string]any{"code": "F-01", "name": "Again"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/farms", s.admin, map[string]any{"code": "F-02"}).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/v1/farms", s.operator, map[string]any{"code": "F-03", "name": "x"}).Code)

	rec = s.do(http.MethodGet, "/api/v1/farms?draw=3&start=0&length=10", s.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	grid := decode[datatable.Response](t, rec)
	assert.Equal(t, 3, grid.Draw)
	assert.EqualValues(t, 1, grid.RecordsTotal)

	rec = s.do(http.MethodGet, "/api/v1/farms?draw=1", s.operator, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode[datatable.Response](t, rec).RecordsTotal, "operator has no farms assigned")

	rec = s.do(http.MethodPost, "/api/v1/coops", s.admin, map[string]any{"farm_id": farm.ID, "code": "K-01", "name": "Kandang 1", "capacity": 3000})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/coops/99", s.admin, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/coops/abc", s.admin, nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodPost, "/api/v1/farms/1/operators", s.admin, map[string]any{"user_ids": []uint{2}}).Code)

	rec = s.do(http.MethodGet, "/api/v1/farms?draw=2", s.operator, nil)
	assert.EqualValues(t, 1, decode[datatable.Response](t, rec).RecordsTotal, "assignment widens the operator scope")
}

func TestDataTableRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/v1/datatables/feeds/columns", s.operator, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":"code"`)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/datatables/nope", s.admin, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/v1/datatables/users", s.operator, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/datatables/feeds?draw=-1", s.admin, nil).Code)
}

func TestBookkeepingRoutes(t *testing.T) {
	s := newTestServer(t)
	farm := models.Farm{Code: "F-01", Name: "North"}
	require.NoError(t, s.db.Create(&farm).Error)
	coop := models.Coop{FarmID: farm.ID, Code: "K-01", Name: "Kandang 1", Capacity: 3000}
	require.NoError(t, s.db.Create(&coop).Error)
	feed := models.Feed{Code: "BR-1", Name: "Starter"}
	require.NoError(t, s.db.Create(&feed).Error)

	rec := s.do(http.MethodPost, "/api/v1/purchases/livestock", s.admin, map[string]any{
		"date": "2026-03-01", "farm_id": farm.ID, "coop_id": coop.ID, "quantity": 2000, "price_per_unit": "6500",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	batch := decode[models.Livestock](t, rec)

	rec = s.do(http.MethodPost, "/api/v1/purchases/livestock", s.admin, map[string]any{
		"date": "2026-03-01", "farm_id": farm.ID, "coop_id": coop.ID, "quantity": 100,
	})
	assert.Equal(t, http.StatusConflict, rec.Code, "coop is in use")

	rec = s.do(http.MethodPost, "/api/v1/purchases/feed", s.admin, map[string]any{
		"date": "2026-03-01", "farm_id": farm.ID, "feed_id": feed.ID, "quantity": 50, "price_per_unit": "8500",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/v1/feed-usages", s.admin, map[string]any{
		"livestock_id": batch.ID, "feed_id": feed.ID, "date": "2026-03-02", "quantity": 80,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/v1/depletions", s.admin, map[string]any{
		"livestock_id": batch.ID, "date": "2026-03-02", "type": "mortality", "quantity": 4,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/depletions", s.admin, map[string]any{
		"livestock_id": batch.ID, "type": "stolen", "quantity": 1,
	}).Code)

	rec = s.do(http.MethodPost, "/api/v1/recordings", s.admin, map[string]any{
		"livestock_id": batch.ID, "date": "2026-03-02", "avg_weight": 0.06,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, "/api/v1/recordings", s.admin, map[string]any{
		"livestock_id": batch.ID, "date": "2026-03-02", "avg_weight": 0.06,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/livestocks/1/performance", s.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[models.BatchReport](t, rec)
	assert.Equal(t, 1996, report.Population)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/livestocks/1/performance", s.operator, nil).Code)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/v1/livestocks/1/close", s.operator, nil).Code)
	rec = s.do(http.MethodPost, "/api/v1/livestocks/1/close", s.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.StatusClosed, decode[models.Livestock](t, rec).Status)
}
