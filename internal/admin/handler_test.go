package admin_test

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"atti/internal/admin"
	"atti/internal/admin/mocks"
	dErrors "atti/pkg/domain-errors"
	"atti/pkg/requestcontext"
	"atti/pkg/testutil"
)

//go:generate mockgen -source=models.go -destination=mocks/admin-mocks.go -package=mocks IdentityProvider
type AdminHandlerSuite struct {
	suite.Suite
}

func TestAdminHandlerSuite(t *testing.T) {
	suite.Run(t, new(AdminHandlerSuite))
}

func newTestRouter(t *testing.T) (http.Handler, *mocks.MockIdentityProvider) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	idp := mocks.NewMockIdentityProvider(ctrl)
	r := chi.NewRouter()
	admin.NewHandler(idp, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r, idp
}

func asAdmin(req *http.Request) *http.Request {
	return testutil.WithRoles(req, "admin", requestcontext.RoleAdmin)
}

func (s *AdminHandlerSuite) TestRequiresAdmin() {
	router, _ := newTestRouter(s.T())
	req := testutil.WithRoles(testutil.NewRequest(s.T(), http.MethodGet, "/admin/utenti"), "mrossi", requestcontext.RoleDirigente)
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
}

func (s *AdminHandlerSuite) TestList() {
	router, idp := newTestRouter(s.T())
	idp.EXPECT().ListUsers(gomock.Any()).Return([]*admin.User{
		{ID: "u1", Username: "mrossi", Enabled: true, Roles: []requestcontext.Role{requestcontext.RoleDirigente}},
	}, nil)

	rr := testutil.DoRequest(router, asAdmin(testutil.NewRequest(s.T(), http.MethodGet, "/admin/utenti")))

	testutil.AssertStatusOK(s.T(), rr)
	body := testutil.UnmarshalResponse[[]admin.UserResponse](s.T(), rr)
	s.Require().Len(*body, 1)
	s.Equal("mrossi", (*body)[0].Username)
	s.Equal([]string{"dirigente"}, (*body)[0].Roles)
}

func (s *AdminHandlerSuite) TestCreate() {
	s.Run("returns 201 with the assigned id", func() {
		router, idp := newTestRouter(s.T())
		idp.EXPECT().CreateUser(gomock.Any(), admin.NewUser{
			Username: "lbianchi",
			Email:    "l.bianchi@comune.example.it",
			Roles:    []requestcontext.Role{requestcontext.RoleIstruttore},
		}).Return(&admin.User{ID: "kc-1", Username: "lbianchi", Enabled: true}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/utenti", map[string]any{
			"username": " lbianchi ",
			"email":    "l.bianchi@comune.example.it",
			"ruoli":    []string{"Istruttore"},
		})
		rr := testutil.DoRequest(router, asAdmin(req))

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		testutil.AssertJSONContains(s.T(), rr, "id", "kc-1")
	})

	s.Run("username is required", func() {
		router, _ := newTestRouter(s.T())
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/utenti", map[string]any{"email": "x@example.it"})
		rr := testutil.DoRequest(router, asAdmin(req))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
		s.Equal("Campo 'username' obbligatorio", testutil.UnmarshalErrorResponse(s.T(), rr)["error_description"])
	})

	s.Run("unknown roles are rejected", func() {
		router, _ := newTestRouter(s.T())
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/utenti", map[string]any{"username": "x", "ruoli": []string{"sindaco"}})
		rr := testutil.DoRequest(router, asAdmin(req))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})

	s.Run("conflicts from the provider surface as 409", func() {
		router, idp := newTestRouter(s.T())
		idp.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return(nil, dErrors.New(dErrors.CodeConflict, "user already exists"))
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/utenti", map[string]any{"username": "mrossi"})
		rr := testutil.DoRequest(router, asAdmin(req))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, string(dErrors.CodeConflict))
	})
}

func (s *AdminHandlerSuite) TestUpdate() {
	s.Run("passes only the provided fields", func() {
		router, idp := newTestRouter(s.T())
		idp.EXPECT().UpdateUser(gomock.Any(), "kc-1", gomock.Any()).
			DoAndReturn(func(_ any, _ string, u admin.UserUpdate) error {
				s.Require().NotNil(u.Enabled)
				s.False(*u.Enabled)
				s.Nil(u.Email)
				return nil
			})
		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/admin/utenti/kc-1", map[string]any{"abilitato": false})
		rr := testutil.DoRequest(router, asAdmin(req))
		testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	})

	s.Run("empty payload is rejected", func() {
		router, _ := newTestRouter(s.T())
		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/admin/utenti/kc-1", map[string]any{})
		rr := testutil.DoRequest(router, asAdmin(req))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		s.Equal("Nessun campo da aggiornare", testutil.UnmarshalErrorResponse(s.T(), rr)["error_description"])
	})

	s.Run("unknown user is 404", func() {
		router, idp := newTestRouter(s.T())
		idp.EXPECT().UpdateUser(gomock.Any(), "missing", gomock.Any()).Return(dErrors.New(dErrors.CodeNotFound, "user not found"))
		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/admin/utenti/missing", map[string]any{"nome": "Mario"})
		rr := testutil.DoRequest(router, asAdmin(req))
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	})
}

func (s *AdminHandlerSuite) TestSetRoles() {
	s.Run("replaces roles", func() {
		router, idp := newTestRouter(s.T())
		idp.EXPECT().SetRoles(gomock.Any(), "kc-1", []requestcontext.Role{requestcontext.RoleDirigente, requestcontext.RoleAdmin}).Return(nil)
		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/admin/utenti/kc-1/ruoli", map[string]any{"ruoli": []string{"dirigente", "admin"}})
		rr := testutil.DoRequest(router, asAdmin(req))
		testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	})

	s.Run("an empty list revokes every role", func() {
		router, idp := newTestRouter(s.T())
		idp.EXPECT().SetRoles(gomock.Any(), "kc-1", []requestcontext.Role{}).Return(nil)
		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/admin/utenti/kc-1/ruoli", map[string]any{"ruoli": []string{}})
		rr := testutil.DoRequest(router, asAdmin(req))
		testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	})

	s.Run("ruoli is required", func() {
		router, _ := newTestRouter(s.T())
		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/admin/utenti/kc-1/ruoli", map[string]any{})
		rr := testutil.DoRequest(router, asAdmin(req))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		s.Equal("Campo 'ruoli' obbligatorio", testutil.UnmarshalErrorResponse(s.T(), rr)["error_description"])
	})
}

func (s *AdminHandlerSuite) TestResetPassword() {
	s.Run("sends the reset email", func() {
		router, idp := newTestRouter(s.T())
		idp.EXPECT().SendPasswordReset(gomock.Any(), "kc-1").Return(nil)
		rr := testutil.DoRequest(router, asAdmin(testutil.NewRequest(s.T(), http.MethodPost, "/admin/utenti/kc-1/reset-password")))
		testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	})

	s.Run("provider outage is 503", func() {
		router, idp := newTestRouter(s.T())
		idp.EXPECT().SendPasswordReset(gomock.Any(), "kc-1").Return(dErrors.Wrap(errors.New("dial tcp"), dErrors.CodeUnavailable, "identity provider unreachable"))
		rr := testutil.DoRequest(router, asAdmin(testutil.NewRequest(s.T(), http.MethodPost, "/admin/utenti/kc-1/reset-password")))
		testutil.AssertStatus(s.T(), rr, http.StatusServiceUnavailable)
	})
}

func TestPlaceholder(t *testing.T) {
	p := admin.Placeholder{}
	users, err := p.ListUsers(t.Context())
	if err != nil || users == nil || len(users) != 0 {
		t.Fatalf("expected empty non-nil list, got %v %v", users, err)
	}
	u, err := p.CreateUser(t.Context(), admin.NewUser{Username: "mrossi"})
	if err != nil || u.ID != admin.PlaceholderUserID || u.Username != "mrossi" {
		t.Fatalf("unexpected placeholder user %+v %v", u, err)
	}
}
