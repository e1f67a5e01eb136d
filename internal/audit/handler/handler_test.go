package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"atti/internal/audit/handler/mocks"
	"atti/internal/audit/models"
	id "atti/pkg/domain"
	dErrors "atti/pkg/domain-errors"
	"atti/pkg/requestcontext"
	"atti/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/audit-mocks.go -package=mocks Service
type AuditHandlerSuite struct {
	suite.Suite
}

func TestAuditHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuditHandlerSuite))
}

func newTestRouter(t *testing.T) (http.Handler, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	h := New(mockService, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	return r, mockService
}

func (s *AuditHandlerSuite) TestHandleQuery() {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	s.Run("admin receives filtered events", func() {
		router, svc := newTestRouter(s.T())
		svc.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, caller requestcontext.Caller, f models.Filter) ([]*models.Event, error) {
				s.Equal("admin", caller.Username)
				s.Equal("p1", f.ProcessInstanceID)
				s.Require().NotNil(f.From)
				s.True(f.From.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
				s.Nil(f.To)
				return []*models.Event{{ID: id.NewAuditEventID(), ProcessInstanceID: "p1", EventType: "ATTO_PUBBLICATO", UserID: "mrossi", Timestamp: at}}, nil
			})

		req := testutil.NewRequest(s.T(), http.MethodGet, "/audit?processInstanceId=p1&from=2025-03-01T00:00:00Z")
		req = testutil.WithRoles(req, "admin", requestcontext.RoleAdmin)
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusOK(s.T(), rr)
		var body []map[string]any
		s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &body))
		s.Require().Len(body, 1)
		s.Equal("ATTO_PUBBLICATO", body[0]["eventType"])
		s.Equal("2025-03-01T10:00:00Z", body[0]["timestamp"])
	})

	s.Run("non admin is forbidden", func() {
		router, _ := newTestRouter(s.T())
		req := testutil.WithRoles(testutil.NewRequest(s.T(), http.MethodGet, "/audit"), "mrossi", requestcontext.RoleDirigente)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
	})

	s.Run("malformed date is 400", func() {
		router, _ := newTestRouter(s.T())
		req := testutil.WithRoles(testutil.NewRequest(s.T(), http.MethodGet, "/audit?from=yesterday"), "admin", requestcontext.RoleAdmin)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput))
	})
}

func (s *AuditHandlerSuite) TestHandleAppend() {
	s.Run("returns 201 with server assigned fields", func() {
		router, svc := newTestRouter(s.T())
		eventID := id.NewAuditEventID()
		stamped := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
		svc.EXPECT().Append(gomock.Any(), gomock.Any(), models.NewEvent{EventType: "TASK_COMPLETATO", ProcessInstanceID: "p9"}).
			Return(&models.Event{ID: eventID, EventType: "TASK_COMPLETATO", ProcessInstanceID: "p9", UserID: "lbianchi", Timestamp: stamped}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/audit", map[string]any{
			"eventType":         "TASK_COMPLETATO",
			"processInstanceId": "p9",
			"timestamp":         "1999-01-01T00:00:00Z",
		})
		req = testutil.WithRoles(req, "lbianchi", requestcontext.RoleIstruttore)
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		var body map[string]any
		s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &body))
		s.Equal(eventID.String(), body["id"])
		s.Equal("lbianchi", body["userId"])
		s.Equal("2025-03-01T10:00:00Z", body["timestamp"])
	})

	s.Run("missing eventType is 400", func() {
		router, _ := newTestRouter(s.T())
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/audit", map[string]any{"processInstanceId": "p9"})
		req = testutil.WithRoles(req, "lbianchi")
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter(url.Values{
		"userId": {" mrossi "},
		"from":   {"2025-03-01T08:30:00"},
		"to":     {"2025-03-02"},
	})
	require.NoError(t, err)
	assert.Equal(t, "mrossi", f.UserID)
	require.NotNil(t, f.From)
	assert.True(t, f.From.Equal(time.Date(2025, 3, 1, 8, 30, 0, 0, time.Local)))
	require.NotNil(t, f.To)
	assert.True(t, f.To.Equal(time.Date(2025, 3, 2, 23, 59, 59, 999999999, time.Local)), "bare date in to covers the day")

	f, err = ParseFilter(url.Values{"from": {"2025-03-01"}})
	require.NoError(t, err)
	assert.True(t, f.From.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.Local)))
	assert.Nil(t, f.To)

	_, err = ParseFilter(url.Values{"to": {"03/01/2025"}})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
