package demo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Alp4ka/gotable"
	"github.com/Alp4ka/gotable/htmlrender"
	"github.com/Alp4ka/gotable/internal/config"
)

func newGORMPostgresMock(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{})
	require.NoError(t, err)

	return db, mock
}

func newTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	t.Helper()

	db, mock := newGORMPostgresMock(t)
	h := NewHandler(db, gotable.NewMemorySessions(), htmlrender.Must(), config.TableConfig{
		RowsPerPage: 2,
		Paginator:   config.PaginatorEager,
		Segment:     5,
	}, nil)

	return h, mock
}

func Test_Handler_RendersEvents(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "events"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT \* FROM "events"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "kind", "severity", "acknowledged", "host_id", "happened_at"}).
			AddRow(1, "deploy #1", "deploy", 4, true, 1, time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)).
			AddRow(2, "incident #2", "incident", 1, nil, 1, time.Date(2024, 1, 1, 11, 30, 0, 0, time.UTC)))
	mock.ExpectQuery(`SELECT \* FROM "hosts"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "alpha"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<title>Events</title>")
	assert.Contains(t, body, "deploy #1")
	assert.Contains(t, body, "alpha")
	assert.Contains(t, body, "2024-01-01 10:30")
	assert.Contains(t, body, `class="severity-high"`)
	assert.Contains(t, body, `class="pending"`)
	assert.Contains(t, body, "3 rows")
	assert.NotEmpty(t, rec.Result().Cookies())
	require.NoError(t, mock.ExpectationsWereMet())
}

func Test_Handler_PageNotFound(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "events"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events?page=9", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func Test_Handler_SortRedirectsAndKeepsSession(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events?sort_by=-severity", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, gotable.CustomProfileURL, rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	session, err := h.sessions.Open(context.Background(), cookies[0].Value)
	require.NoError(t, err)

	raw, ok, err := session.Get(context.Background(), "tableview_events")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, raw, "-severity")
}

func Test_Handler_AjaxKinds(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/events?action=load_json&function=kinds", nil)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["deploy","incident","maintenance","audit"]`, rec.Body.String())
}

func Test_sessionID_ReusesValidCookie(t *testing.T) {
	h, _ := newTestHandler(t)

	const id = "6f1c1f2e-2a5b-4c1e-9a57-3c7b5b0d6a11"
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: id})

	rec := httptest.NewRecorder()
	assert.Equal(t, id, h.sessionID(rec, req))
	assert.Empty(t, rec.Result().Cookies())

	req = httptest.NewRequest(http.MethodGet, "/events", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "not-a-uuid"})

	rec = httptest.NewRecorder()
	assert.NotEqual(t, "not-a-uuid", h.sessionID(rec, req))
	assert.Len(t, rec.Result().Cookies(), 1)
}

func Test_userOf(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		anonymous bool
		id        uint
	}{
		{"missing", "", true, 0},
		{"zero", "0", true, 0},
		{"malformed", "abc", true, 0},
		{"valid", "42", false, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(UserHeader, tt.header)
			}

			user := userOf(req)
			assert.Equal(t, tt.anonymous, user.IsAnonymous)
			assert.Equal(t, tt.id, user.ID)
		})
	}
}

func Test_NewMux(t *testing.T) {
	mux := NewMux(http.NotFoundHandler())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/events", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_eventFilterForm_Validate(t *testing.T) {
	tests := []struct {
		name string
		data url.Values
		ok   bool
		want map[string]any
	}{
		{"empty", url.Values{}, true, map[string]any{}},
		{"kind and severity", url.Values{"kind": {"deploy"}, "severity_min": {"3"}}, true, map[string]any{"kind": "deploy", "severity_min": 3}},
		{"unknown kind", url.Values{"kind": {"party"}}, false, map[string]any{"kind": "party"}},
		{"bad severity", url.Values{"severity_min": {"-1"}}, false, map[string]any{"severity_min": -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := newEventFilterForm(nil, nil, nil).(*eventFilterForm)

			got, ok := form.Validate(tt.data)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, !tt.ok, len(form.Errors()) > 0)
		})
	}
}

func Test_eventFilterForm_HTML(t *testing.T) {
	form := newEventFilterForm(nil, nil, map[string]any{"kind": "audit", "severity_min": float64(2)}).(*eventFilterForm)

	out := form.HTML().String()
	assert.Contains(t, out, `<option value="audit" selected>audit</option>`)
	assert.Contains(t, out, `name="severity_min" value="2"`)
	assert.Equal(t, 1, strings.Count(out, "selected"))
}
