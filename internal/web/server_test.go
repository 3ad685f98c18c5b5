package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/willemschots/accounts/internal/account"
	accountdb "github.com/willemschots/accounts/internal/account/db"
	"github.com/willemschots/accounts/internal/db"
	"github.com/willemschots/accounts/internal/db/testdb"
	"github.com/willemschots/accounts/internal/email"
	"github.com/willemschots/accounts/internal/errorz/testerr"
	"github.com/willemschots/accounts/internal/krypto"
	"github.com/willemschots/accounts/internal/web"
)

const (
	testEmail    = "a@x.com"
	testPassword = "secret"
)

func Test_Server_Healthz(t *testing.T) {
	st := newServerTest(t, nil)

	res := st.do(t, http.MethodGet, "/healthz", nil)
	res.assert(t, http.StatusOK, "ok")
}

func Test_Server_Register(t *testing.T) {
	tests := map[string]struct {
		form       url.Values
		wantStatus int
		wantBody   string
	}{
		"ok, registered": {
			form:       registerForm(testEmail, testPassword, testPassword),
			wantStatus: http.StatusCreated,
			wantBody:   "registered",
		},
		"ok, unknown fields are ignored": {
			form: func() url.Values {
				f := registerForm(testEmail, testPassword, testPassword)
				f.Set("Extra", "value")
				return f
			}(),
			wantStatus: http.StatusCreated,
			wantBody:   "registered",
		},
		"fail, password mismatch": {
			form:       registerForm(testEmail, testPassword, "other"),
			wantStatus: http.StatusBadRequest,
			wantBody:   "password-mismatch",
		},
		"fail, invalid email": {
			form:       registerForm("not-an-email", testPassword, testPassword),
			wantStatus: http.StatusBadRequest,
			wantBody:   "invalid-input",
		},
		"fail, missing name": {
			form: url.Values{
				"Email":           {testEmail},
				"Password":        {testPassword},
				"ConfirmPassword": {testPassword},
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   "invalid-input",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			st := newServerTest(t, nil)

			res := st.do(t, http.MethodPost, "/register", tc.form)
			res.assert(t, tc.wantStatus, tc.wantBody)
		})
	}

	t.Run("fail, invalid fields are named", func(t *testing.T) {
		st := newServerTest(t, nil)

		res := st.do(t, http.MethodPost, "/register", registerForm("not-an-email", testPassword, testPassword))
		res.assert(t, http.StatusBadRequest, "invalid-input")

		if len(res.body.Fields) != 1 || res.body.Fields[0] != "Email" {
			t.Errorf("got fields %v, want [Email]", res.body.Fields)
		}
	})

	t.Run("fail, email taken", func(t *testing.T) {
		st := newServerTest(t, nil)

		st.do(t, http.MethodPost, "/register", registerForm(testEmail, testPassword, testPassword)).
			assert(t, http.StatusCreated, "registered")

		res := st.do(t, http.MethodPost, "/register", registerForm(testEmail, "other", "other"))
		res.assert(t, http.StatusConflict, "email-taken")
	})

	t.Run("fail, store unavailable", func(t *testing.T) {
		st := newServerTest(t, failingStore{})

		res := st.do(t, http.MethodPost, "/register", registerForm(testEmail, testPassword, testPassword))
		res.assert(t, http.StatusServiceUnavailable, "unavailable")
	})
}

func Test_Server_Login(t *testing.T) {
	t.Run("fail, unknown account", func(t *testing.T) {
		st := newServerTest(t, nil)

		res := st.do(t, http.MethodPost, "/login", loginForm(testEmail, testPassword))
		res.assert(t, http.StatusUnauthorized, "not-found")
	})

	t.Run("fail, unconfirmed account", func(t *testing.T) {
		st := newServerTest(t, nil)
		st.register(t)

		res := st.do(t, http.MethodPost, "/login", loginForm(testEmail, testPassword))
		res.assert(t, http.StatusForbidden, "unconfirmed")

		want := "Your account is not confirmed yet. An email was sent to a@x.com."
		if res.body.Message != want {
			t.Errorf("got message %q, want %q", res.body.Message, want)
		}
	})

	t.Run("fail, wrong password", func(t *testing.T) {
		st := newServerTest(t, nil)
		st.confirm(t, st.register(t))

		res := st.do(t, http.MethodPost, "/login", loginForm(testEmail, "wrong"))
		res.assert(t, http.StatusUnauthorized, "not-found")
	})

	t.Run("ok, confirmed account", func(t *testing.T) {
		st := newServerTest(t, nil)
		st.confirm(t, st.register(t))

		res := st.do(t, http.MethodPost, "/login", loginForm(testEmail, testPassword))
		res.assert(t, http.StatusOK, "success")

		if !strings.Contains(res.body.Message, "Alice") {
			t.Errorf("expected display name in message, got %q", res.body.Message)
		}
	})

	t.Run("fail, reset pending", func(t *testing.T) {
		st := newServerTest(t, nil)
		st.confirm(t, st.register(t))

		st.do(t, http.MethodPost, "/password-resets/requests", url.Values{"Email": {testEmail}}).
			assert(t, http.StatusAccepted, "sent")

		res := st.do(t, http.MethodPost, "/login", loginForm(testEmail, testPassword))
		res.assert(t, http.StatusForbidden, "reset-pending")
	})

	for name, form := range map[string]url.Values{
		"fail, malformed email":    loginForm("not-an-email", testPassword),
		"fail, oversized password": loginForm(testEmail, strings.Repeat("a", 600)),
		"fail, missing fields":     {},
	} {
		t.Run(name, func(t *testing.T) {
			st := newServerTest(t, nil)
			st.confirm(t, st.register(t))

			res := st.do(t, http.MethodPost, "/login", form)
			res.assert(t, http.StatusUnauthorized, "not-found")

			if res.body.Message != "Invalid email or password." {
				t.Errorf("got message %q, want the generic not found message", res.body.Message)
			}
		})
	}

	t.Run("fail, store unavailable", func(t *testing.T) {
		st := newServerTest(t, failingStore{})

		res := st.do(t, http.MethodPost, "/login", loginForm(testEmail, testPassword))
		res.assert(t, http.StatusServiceUnavailable, "unavailable")
	})
}

func Test_Server_Confirm(t *testing.T) {
	t.Run("ok, confirmed", func(t *testing.T) {
		st := newServerTest(t, nil)
		raw := st.register(t)

		res := st.do(t, http.MethodGet, confirmPath(raw), nil)
		res.assert(t, http.StatusOK, "confirmed")
	})

	t.Run("ok, confirm twice", func(t *testing.T) {
		st := newServerTest(t, nil)
		raw := st.register(t)

		st.do(t, http.MethodGet, confirmPath(raw), nil).assert(t, http.StatusOK, "confirmed")
		st.do(t, http.MethodGet, confirmPath(raw), nil).assert(t, http.StatusOK, "confirmed")
	})

	t.Run("fail, unknown token", func(t *testing.T) {
		st := newServerTest(t, nil)
		raw := st.register(t)
		raw.Token = must(krypto.GenerateToken())

		res := st.do(t, http.MethodGet, confirmPath(raw), nil)
		res.assert(t, http.StatusNotFound, "not-confirmed")
	})

	t.Run("fail, malformed token", func(t *testing.T) {
		st := newServerTest(t, nil)

		res := st.do(t, http.MethodGet, "/confirm?ID=not-a-uuid&Token=abc", nil)
		res.assert(t, http.StatusBadRequest, "invalid-input")
	})
}

func Test_Server_PasswordReset(t *testing.T) {
	t.Run("ok, request and update password", func(t *testing.T) {
		st := newServerTest(t, nil)
		st.confirm(t, st.register(t))

		st.do(t, http.MethodPost, "/password-resets/requests", url.Values{"Email": {testEmail}}).
			assert(t, http.StatusAccepted, "sent")

		raw := st.emailer.lastToken(t, account.TemplateResetPassword)

		res := st.do(t, http.MethodPost, "/password-resets", newPasswordForm(raw, "new", "new"))
		res.assert(t, http.StatusOK, "updated")

		st.do(t, http.MethodPost, "/login", loginForm(testEmail, testPassword)).
			assert(t, http.StatusUnauthorized, "not-found")
		st.do(t, http.MethodPost, "/login", loginForm(testEmail, "new")).
			assert(t, http.StatusOK, "success")

		// The token was consumed.
		st.do(t, http.MethodPost, "/password-resets", newPasswordForm(raw, "newer", "newer")).
			assert(t, http.StatusNotFound, "not-found")
	})

	t.Run("fail, request for unknown email", func(t *testing.T) {
		st := newServerTest(t, nil)

		res := st.do(t, http.MethodPost, "/password-resets/requests", url.Values{"Email": {testEmail}})
		res.assert(t, http.StatusNotFound, "not-found")
	})

	t.Run("fail, password mismatch", func(t *testing.T) {
		st := newServerTest(t, nil)
		st.confirm(t, st.register(t))

		st.do(t, http.MethodPost, "/password-resets/requests", url.Values{"Email": {testEmail}}).
			assert(t, http.StatusAccepted, "sent")

		raw := st.emailer.lastToken(t, account.TemplateResetPassword)

		res := st.do(t, http.MethodPost, "/password-resets", newPasswordForm(raw, "new", "other"))
		res.assert(t, http.StatusBadRequest, "password-mismatch")
	})

	t.Run("fail, confirmation token can not reset password", func(t *testing.T) {
		st := newServerTest(t, nil)
		raw := st.register(t)
		st.confirm(t, raw)

		res := st.do(t, http.MethodPost, "/password-resets", newPasswordForm(raw, "new", "new"))
		res.assert(t, http.StatusNotFound, "not-found")

		// The password is unchanged.
		st.do(t, http.MethodPost, "/login", loginForm(testEmail, testPassword)).
			assert(t, http.StatusOK, "success")
		st.do(t, http.MethodPost, "/login", loginForm(testEmail, "new")).
			assert(t, http.StatusUnauthorized, "not-found")
	})

	t.Run("fail, request for malformed email", func(t *testing.T) {
		st := newServerTest(t, nil)

		res := st.do(t, http.MethodPost, "/password-resets/requests", url.Values{"Email": {"nope"}})
		res.assert(t, http.StatusNotFound, "not-found")
	})

	t.Run("ok, request for malformed email when concealing account state", func(t *testing.T) {
		st := newServerTestWithConfig(t, nil, account.ServiceConfig{ConcealAccountState: true})

		res := st.do(t, http.MethodPost, "/password-resets/requests", url.Values{"Email": {"nope"}})
		res.assert(t, http.StatusAccepted, "sent")
	})

	t.Run("fail, store unavailable", func(t *testing.T) {
		st := newServerTest(t, failingStore{})

		res := st.do(t, http.MethodPost, "/password-resets/requests", url.Values{"Email": {testEmail}})
		res.assert(t, http.StatusServiceUnavailable, "unavailable")
	})
}

func Test_Server_CheckResetLink(t *testing.T) {
	t.Run("ok, link from reset email", func(t *testing.T) {
		st := newServerTest(t, nil)
		st.confirm(t, st.register(t))

		st.do(t, http.MethodPost, "/password-resets/requests", url.Values{"Email": {testEmail}}).
			assert(t, http.StatusAccepted, "sent")
		raw := st.emailer.lastToken(t, account.TemplateResetPassword)

		// do fails the test for anything but a JSON response.
		res := st.do(t, http.MethodGet, resetPath(raw), nil)
		res.assert(t, http.StatusOK, "reset-pending")

		// Following the link twice is fine, it doesn't consume the token.
		st.do(t, http.MethodGet, resetPath(raw), nil).assert(t, http.StatusOK, "reset-pending")

		st.do(t, http.MethodPost, "/password-resets", newPasswordForm(raw, "new", "new")).
			assert(t, http.StatusOK, "updated")

		st.do(t, http.MethodGet, resetPath(raw), nil).assert(t, http.StatusNotFound, "not-found")
	})

	t.Run("fail, confirmation token", func(t *testing.T) {
		st := newServerTest(t, nil)
		raw := st.register(t)

		res := st.do(t, http.MethodGet, resetPath(raw), nil)
		res.assert(t, http.StatusNotFound, "not-found")
	})

	t.Run("fail, malformed token", func(t *testing.T) {
		st := newServerTest(t, nil)

		res := st.do(t, http.MethodGet, "/password-resets?ID=x&Token=y", nil)
		res.assert(t, http.StatusBadRequest, "invalid-input")
	})

	t.Run("fail, store unavailable", func(t *testing.T) {
		st := newServerTest(t, failingStore{})

		raw := account.EmailTokenRaw{ID: uuid.New(), Token: must(krypto.GenerateToken())}
		res := st.do(t, http.MethodGet, resetPath(raw), nil)
		res.assert(t, http.StatusServiceUnavailable, "unavailable")
	})
}

type serverTest struct {
	srv     *httptest.Server
	emailer *testEmailer
	logs    *bytes.Buffer
}

func newServerTest(t *testing.T, store account.Store) *serverTest {
	t.Helper()

	return newServerTestWithConfig(t, store, account.ServiceConfig{})
}

func newServerTestWithConfig(t *testing.T, store account.Store, cfg account.ServiceConfig) *serverTest {
	t.Helper()

	if store == nil {
		encryptor := must(krypto.NewEncryptor([]krypto.Key{
			must(krypto.ParseKey("2b671594b775f371eab4050b4d58326682df6b1a6cc2e886717b1a26b4d6c45d")),
		}))
		indexKey := must(krypto.ParseKey("90303dfed7994260ea4817a5ca8a392915cd401115b2f97495dadfcbcd14adbf"))

		testDB := testdb.RunWhile(t, true)
		store = accountdb.New(testDB, testDB, db.SQLite, encryptor, indexKey)
	}

	emailer := &testEmailer{mutex: &sync.Mutex{}}

	svc, err := account.NewService(store, emailer, nil, cfg)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	logs := &bytes.Buffer{}
	srv := httptest.NewServer(web.NewServer(&web.ServerDeps{
		Logger:         slog.New(slog.NewTextHandler(logs, nil)),
		AccountService: svc,
	}))
	t.Cleanup(srv.Close)

	return &serverTest{
		srv:     srv,
		emailer: emailer,
		logs:    logs,
	}
}

// register registers testEmail and returns the token from the confirmation email.
func (st *serverTest) register(t *testing.T) account.EmailTokenRaw {
	t.Helper()

	st.do(t, http.MethodPost, "/register", registerForm(testEmail, testPassword, testPassword)).
		assert(t, http.StatusCreated, "registered")

	return st.emailer.lastToken(t, account.TemplateConfirmEmail)
}

func (st *serverTest) confirm(t *testing.T, raw account.EmailTokenRaw) {
	t.Helper()

	st.do(t, http.MethodGet, confirmPath(raw), nil).assert(t, http.StatusOK, "confirmed")
}

type testResponse struct {
	status int
	body   struct {
		Status  string   `json:"status"`
		Message string   `json:"message"`
		Fields  []string `json:"fields"`
	}
}

func (st *serverTest) do(t *testing.T, method, path string, form url.Values) testResponse {
	t.Helper()

	var (
		req *http.Request
		err error
	)
	if form != nil {
		req, err = http.NewRequestWithContext(context.Background(), method, st.srv.URL+path, strings.NewReader(form.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(context.Background(), method, st.srv.URL+path, nil)
	}
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	res, err := st.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("failed to do request: %v", err)
	}
	defer res.Body.Close()

	if ct := res.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("got content type %q, want json", ct)
	}

	out := testResponse{status: res.StatusCode}
	err = json.NewDecoder(res.Body).Decode(&out.body)
	if err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}

	return out
}

func (r testResponse) assert(t *testing.T, wantStatus int, wantBody string) {
	t.Helper()

	if r.status != wantStatus || r.body.Status != wantBody {
		t.Fatalf("got %d %q (%s), want %d %q", r.status, r.body.Status, r.body.Message, wantStatus, wantBody)
	}
}

func registerForm(addr, pwd, confirmPwd string) url.Values {
	return url.Values{
		"Email":           {addr},
		"Name":            {"Alice"},
		"Password":        {pwd},
		"ConfirmPassword": {confirmPwd},
	}
}

func loginForm(addr, pwd string) url.Values {
	return url.Values{
		"Email":    {addr},
		"Password": {pwd},
	}
}

func newPasswordForm(raw account.EmailTokenRaw, pwd, confirmPwd string) url.Values {
	return url.Values{
		"ID":              {raw.ID.String()},
		"Token":           {raw.Token.String()},
		"Password":        {pwd},
		"ConfirmPassword": {confirmPwd},
	}
}

func confirmPath(raw account.EmailTokenRaw) string {
	q := url.Values{
		"ID":    {raw.ID.String()},
		"Token": {raw.Token.String()},
	}
	return "/confirm?" + q.Encode()
}

func resetPath(raw account.EmailTokenRaw) string {
	q := url.Values{
		"ID":    {raw.ID.String()},
		"Token": {raw.Token.String()},
	}
	return "/password-resets?" + q.Encode()
}

type sentEmail struct {
	template string
	data     any
}

type testEmailer struct {
	mutex  *sync.Mutex
	emails []sentEmail
}

func (e *testEmailer) SendMessage(_ context.Context, template string, _ email.Address, data any) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.emails = append(e.emails, sentEmail{template: template, data: data})
	return nil
}

func (e *testEmailer) lastToken(t *testing.T, template string) account.EmailTokenRaw {
	t.Helper()

	e.mutex.Lock()
	defer e.mutex.Unlock()

	for i := len(e.emails) - 1; i >= 0; i-- {
		if e.emails[i].template != template {
			continue
		}

		msg, ok := e.emails[i].data.(account.TokenMessage)
		if !ok {
			t.Fatalf("unexpected data type: %T", e.emails[i].data)
		}
		return msg.Token
	}

	t.Fatalf("no %s email was sent", template)
	return account.EmailTokenRaw{}
}

// failingStore is a store that can't be reached.
type failingStore struct{}

func (failingStore) BeginTx(context.Context) (account.Tx, error) {
	return nil, testerr.Err
}

func (failingStore) FindAccounts(context.Context, *account.AccountFilter) ([]account.Account, error) {
	return nil, testerr.Err
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
