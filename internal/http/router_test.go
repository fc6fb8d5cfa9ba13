package http_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hirokiuemura2/GDGTeamF1/internal/config"
	"github.com/hirokiuemura2/GDGTeamF1/internal/domain"
	"github.com/hirokiuemura2/GDGTeamF1/internal/googleai"
	"github.com/hirokiuemura2/GDGTeamF1/internal/hash"
	httptransport "github.com/hirokiuemura2/GDGTeamF1/internal/http"
	"github.com/hirokiuemura2/GDGTeamF1/internal/http/handler"
	httpmiddleware "github.com/hirokiuemura2/GDGTeamF1/internal/http/middleware"
	"github.com/hirokiuemura2/GDGTeamF1/internal/oauth"
	"github.com/hirokiuemura2/GDGTeamF1/internal/service"
	"github.com/hirokiuemura2/GDGTeamF1/internal/token"
)

type testEnv struct {
	router *gin.Engine
	states *oauth.StateStore
	users  *memoryUserRepo
}

func newTestEnv(t *testing.T, googleCfg oauth.Config, aiBaseURL string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	privatePEM := string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}))
	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER}))

	codec, err := token.New(privatePEM, publicPEM, "RS256")
	require.NoError(t, err)

	cfg := config.Config{ServiceName: "finance-api", BaseURL: "http://app.test"}

	users := newMemoryUserRepo()
	authSvc := service.NewAuthService(users, hash.New(2), codec, zap.NewNop())
	expenseSvc := service.NewExpenseService(newMemoryExpenseRepo(), zap.NewNop())
	currencySvc := service.NewCurrencyService(staticRates{"USD": 1, "EUR": 0.5, "JPY": 150})

	states := oauth.NewStateStore()
	authHandler := handler.NewAuthHandler(authSvc, oauth.NewClient(googleCfg), states, cfg)

	if aiBaseURL == "" {
		aiBaseURL = "http://ai.invalid"
	}

	router := httptransport.NewRouter(
		cfg,
		authHandler,
		handler.NewExpenseHandler(expenseSvc),
		handler.NewCurrencyHandler(currencySvc),
		handler.NewAdviceHandler(googleai.New(aiBaseURL, "test-key", "gemini-2.5-flash")),
		&httpmiddleware.Auth{AuthService: authSvc},
		nil,
	)
	return &testEnv{router: router, states: states, users: users}
}

func (e *testEnv) do(t *testing.T, method, target, contentType, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func signUp(t *testing.T, env *testEnv, email string) (userID, access, refresh string) {
	t.Helper()
	body := fmt.Sprintf(`{"first_name":"Ada","last_name":"Lovelace","email":%q,"password":"secret123"}`, email)
	rec := env.do(t, http.MethodPost, "/auth/sign-up", "application/json", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	out := decodeJSON(t, rec)
	pair := out["token"].(map[string]any)
	return out["id"].(string), pair["access_token"].(string), pair["refresh_token"].(string)
}

func bearer(tok string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + tok}}
}

func TestSignUpAndLogin(t *testing.T) {
	env := newTestEnv(t, oauth.Config{}, "")

	userID, _, _ := signUp(t, env, "ada@x.com")
	require.NotEmpty(t, userID)

	form := url.Values{"username": {"ada@x.com"}, "password": {"secret123"}}
	rec := env.do(t, http.MethodPost, "/auth/login", "application/x-www-form-urlencoded", form.Encode(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decodeJSON(t, rec)
	require.NotEmpty(t, out["access_token"])
	require.NotEmpty(t, out["refresh_token"])
}

func TestSignUpDuplicateEmail(t *testing.T) {
	env := newTestEnv(t, oauth.Config{}, "")
	signUp(t, env, "ada@x.com")

	body := `{"first_name":"Ada","last_name":"Lovelace","email":"ada@x.com","password":"other"}`
	rec := env.do(t, http.MethodPost, "/auth/sign-up", "application/json", body, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	require.Contains(t, decodeJSON(t, rec)["detail"], "has been registered")
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t, oauth.Config{}, "")
	signUp(t, env, "ada@x.com")

	form := url.Values{"username": {"ada@x.com"}, "password": {"wrong"}}
	rec := env.do(t, http.MethodPost, "/auth/login", "application/x-www-form-urlencoded", form.Encode(), nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
}

func TestLoginCheck(t *testing.T) {
	env := newTestEnv(t, oauth.Config{}, "")
	_, access, refresh := signUp(t, env, "ada@x.com")

	rec := env.do(t, http.MethodGet, "/auth/login-check", "", "", bearer(access))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "You are logged in!", decodeJSON(t, rec)["status"])

	// Refresh tokens must not pass as access tokens.
	rec = env.do(t, http.MethodGet, "/auth/login-check", "", "", bearer(refresh))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/auth/login-check", "", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
}

func TestRefreshRotation(t *testing.T) {
	env := newTestEnv(t, oauth.Config{}, "")
	_, access, refresh := signUp(t, env, "ada@x.com")

	body := fmt.Sprintf(`{"access_token":%q,"refresh_token":%q}`, access, refresh)
	rec := env.do(t, http.MethodPost, "/auth/refresh", "application/json", body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decodeJSON(t, rec)
	require.NotEmpty(t, out["access_token"])

	// An access token in the refresh slot is rejected.
	body = fmt.Sprintf(`{"refresh_token":%q}`, access)
	rec = env.do(t, http.MethodPost, "/auth/refresh", "application/json", body, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteUser(t *testing.T) {
	env := newTestEnv(t, oauth.Config{}, "")
	_, access, _ := signUp(t, env, "ada@x.com")

	form := url.Values{"username": {"ada@x.com"}, "password": {"secret123"}}
	rec := env.do(t, http.MethodPost, "/auth/delete-user", "application/x-www-form-urlencoded", form.Encode(), bearer(access))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/auth/login", "application/x-www-form-urlencoded", form.Encode(), nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteUserSubjectMismatch(t *testing.T) {
	env := newTestEnv(t, oauth.Config{}, "")
	signUp(t, env, "ada@x.com")
	_, otherAccess, _ := signUp(t, env, "grace@x.com")

	// Bearer for grace, credentials for ada: refused.
	form := url.Values{"username": {"ada@x.com"}, "password": {"secret123"}}
	rec := env.do(t, http.MethodPost, "/auth/delete-user", "application/x-www-form-urlencoded", form.Encode(), bearer(otherAccess))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGoogleLoginRedirect(t *testing.T) {
	cfg := oauth.DefaultGoogle("client-1", "shhh")
	env := newTestEnv(t, cfg, "")

	rec := env.do(t, http.MethodGet, "/auth/google/login", "", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "accounts.google.com", location.Host)
	require.Equal(t, "client-1", location.Query().Get("client_id"))
	require.Equal(t, "http://app.test/auth/google/callback", location.Query().Get("redirect_uri"))
	require.NotEmpty(t, location.Query().Get("state"))
}

func TestGoogleSignUpAndLoginCallbacks(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"provider-token","token_type":"Bearer"}`)
		case "/userinfo":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"sub":"goog-123","email":"ada@gmail.com","given_name":"Ada","family_name":"Lovelace"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer provider.Close()

	env := newTestEnv(t, oauth.Config{
		ClientID:     "client-1",
		ClientSecret: "shhh",
		AuthURL:      provider.URL + "/auth",
		TokenURL:     provider.URL + "/token",
		UserInfoURL:  provider.URL + "/userinfo",
		Scopes:       []string{"openid"},
	}, "")

	// Login before sign-up: the subject is unknown.
	state, err := env.states.Issue()
	require.NoError(t, err)
	rec := env.do(t, http.MethodGet, "/auth/google/callback?code=abc&state="+url.QueryEscape(state), "", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())

	state, err = env.states.Issue()
	require.NoError(t, err)
	rec = env.do(t, http.MethodGet, "/auth/google/sign-up-callback?code=abc&state="+url.QueryEscape(state), "", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decodeJSON(t, rec)
	require.Equal(t, "Ada", out["first_name"])
	require.NotEmpty(t, out["token"].(map[string]any)["access_token"])

	state, err = env.states.Issue()
	require.NoError(t, err)
	rec = env.do(t, http.MethodGet, "/auth/google/callback?code=abc&state="+url.QueryEscape(state), "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotEmpty(t, decodeJSON(t, rec)["access_token"])
}

func TestGoogleCallbackRejectsReplayedState(t *testing.T) {
	env := newTestEnv(t, oauth.DefaultGoogle("client-1", "shhh"), "")

	state, err := env.states.Issue()
	require.NoError(t, err)
	require.True(t, env.states.Consume(state))

	rec := env.do(t, http.MethodGet, "/auth/google/callback?code=abc&state="+url.QueryEscape(state), "", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/auth/google/callback?code=abc&state=never-issued", "", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExpenseLifecycle(t *testing.T) {
	env := newTestEnv(t, oauth.Config{}, "")
	_, access, _ := signUp(t, env, "ada@x.com")

	body := `{"amount":12.5,"currency":"USD","category":"food","description":"lunch","occurred_at":"2026-08-01T12:00:00Z"}`
	rec := env.do(t, http.MethodPost, "/expenses", "application/json", body, bearer(access))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeJSON(t, rec)
	expenseID := created["id"].(string)
	require.NotEmpty(t, expenseID)

	rec = env.do(t, http.MethodGet, "/expenses/get?currency=USD&min_amount=10", "", "", bearer(access))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var listed []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)

	rec = env.do(t, http.MethodPost, "/expenses/delete", "application/json", fmt.Sprintf(`{"id":%q}`, expenseID), bearer(access))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/expenses/delete", "application/json", fmt.Sprintf(`{"id":%q}`, expenseID), bearer(access))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExpensesAreScopedToOwner(t *testing.T) {
	env := newTestEnv(t, oauth.Config{}, "")
	_, adaAccess, _ := signUp(t, env, "ada@x.com")
	_, graceAccess, _ := signUp(t, env, "grace@x.com")

	body := `{"amount":5,"currency":"EUR","category":"coffee","occurred_at":"2026-08-01T08:00:00Z"}`
	rec := env.do(t, http.MethodPost, "/expenses", "application/json", body, bearer(adaAccess))
	require.Equal(t, http.StatusCreated, rec.Code)
	expenseID := decodeJSON(t, rec)["id"].(string)

	rec = env.do(t, http.MethodGet, "/expenses/get", "", "", bearer(graceAccess))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	rec = env.do(t, http.MethodPost, "/expenses/delete", "application/json", fmt.Sprintf(`{"id":%q}`, expenseID), bearer(graceAccess))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubscriptionLifecycle(t *testing.T) {
	env := newTestEnv(t, oauth.Config{}, "")
	_, access, _ := signUp(t, env, "ada@x.com")

	body := `{"amount":9.99,"currency":"USD","category":"media","interval":"monthly","occurred_at":"2026-08-01T00:00:00Z"}`
	rec := env.do(t, http.MethodPost, "/expenses/make-subscription", "application/json", body, bearer(access))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	subID := decodeJSON(t, rec)["id"].(string)

	rec = env.do(t, http.MethodGet, "/expenses/get-subscription", "", "", bearer(access))
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	require.Equal(t, "monthly", listed[0]["interval"])

	rec = env.do(t, http.MethodPost, "/expenses/delete-subscription", "application/json", fmt.Sprintf(`{"id":%q}`, subID), bearer(access))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, decodeJSON(t, rec), "last_recorded_payment")
}

func TestCurrencyConvert(t *testing.T) {
	env := newTestEnv(t, oauth.Config{}, "")

	rec := env.do(t, http.MethodGet, "/currency/convert?amount=100&from_cur=EUR&to_cur=JPY", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decodeJSON(t, rec)
	require.InDelta(t, 30000.0, out["result"].(float64), 0.001)

	rec = env.do(t, http.MethodGet, "/currency/convert?amount=-1&from_cur=EUR&to_cur=JPY", "", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGoogleAIAdvice(t *testing.T) {
	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"Spend less than you earn."}]}}]}`)
	}))
	defer model.Close()

	env := newTestEnv(t, oauth.Config{}, model.URL)

	rec := env.do(t, http.MethodGet, "/google-ai/advice?message=how+do+I+save", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "Spend less than you earn.", decodeJSON(t, rec)["message"])

	rec = env.do(t, http.MethodGet, "/google-ai/advice", "", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthcheck(t *testing.T) {
	env := newTestEnv(t, oauth.Config{}, "")
	rec := env.do(t, http.MethodGet, "/healthcheck", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decodeJSON(t, rec)["status"])
}

type staticRates map[string]float64

func (r staticRates) Rates(ctx context.Context, currencies []string) (map[string]float64, error) {
	out := make(map[string]float64, len(currencies))
	for _, cur := range currencies {
		rate, ok := r[cur]
		if !ok {
			return nil, fmt.Errorf("unknown currency %q", cur)
		}
		out[cur] = rate
	}
	return out, nil
}

type memoryUserRepo struct {
	mu    sync.Mutex
	seq   int
	users map[string]domain.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]domain.User)}
}

func (m *memoryUserRepo) Insert(ctx context.Context, user domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if user.Email != "" && existing.Email == user.Email {
			return domain.User{}, domain.ErrIdentityExists
		}
		if user.GoogleSub != "" && existing.GoogleSub == user.GoogleSub {
			return domain.User{}, domain.ErrIdentityExists
		}
	}
	m.seq++
	user.ID = fmt.Sprintf("U%d", m.seq)
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryUserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email != "" && user.Email == email {
			return user, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (m *memoryUserRepo) FindByGoogleSub(ctx context.Context, sub string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.GoogleSub != "" && user.GoogleSub == sub {
			return user, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (m *memoryUserRepo) FindByID(ctx context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *memoryUserRepo) DeleteByID(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.users, id)
	return nil
}

type memoryExpenseRepo struct {
	mu       sync.Mutex
	seq      int
	expenses map[string]domain.Expense
	subs     map[string]domain.Subscription
}

func newMemoryExpenseRepo() *memoryExpenseRepo {
	return &memoryExpenseRepo{
		expenses: make(map[string]domain.Expense),
		subs:     make(map[string]domain.Subscription),
	}
}

func (m *memoryExpenseRepo) CreateExpense(ctx context.Context, expense domain.Expense) (domain.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	expense.ID = fmt.Sprintf("E%d", m.seq)
	expense.CreatedAt = time.Now().UTC()
	m.expenses[expense.ID] = expense
	return expense, nil
}

func (m *memoryExpenseRepo) DeleteExpense(ctx context.Context, userID, expenseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	expense, ok := m.expenses[expenseID]
	if !ok || expense.UserID != userID {
		return pgx.ErrNoRows
	}
	delete(m.expenses, expenseID)
	return nil
}

func (m *memoryExpenseRepo) ListExpenses(ctx context.Context, userID string, filter domain.ExpenseFilter) ([]domain.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	filter.NormalizeOccurredOn()

	out := make([]domain.Expense, 0)
	for _, e := range m.expenses {
		if e.UserID != userID {
			continue
		}
		if filter.MinAmount != nil && e.Amount < *filter.MinAmount {
			continue
		}
		if filter.MaxAmount != nil && e.Amount > *filter.MaxAmount {
			continue
		}
		if len(filter.Currencies) > 0 && !contains(filter.Currencies, e.Currency) {
			continue
		}
		if len(filter.Categories) > 0 && !contains(filter.Categories, e.Category) {
			continue
		}
		if filter.OccurredAfter != nil && e.OccurredAt.Before(*filter.OccurredAfter) {
			continue
		}
		if filter.OccurredBefore != nil && e.OccurredAt.After(*filter.OccurredBefore) {
			continue
		}
		out = append(out, e)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memoryExpenseRepo) CreateSubscription(ctx context.Context, sub domain.Subscription) (domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	sub.ID = fmt.Sprintf("S%d", m.seq)
	sub.CreatedAt = time.Now().UTC()
	if sub.LastRecordedPayment.IsZero() {
		sub.LastRecordedPayment = sub.OccurredAt
	}
	m.subs[sub.ID] = sub
	return sub, nil
}

func (m *memoryExpenseRepo) DeleteSubscription(ctx context.Context, userID, subscriptionID string) (domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[subscriptionID]
	if !ok || sub.UserID != userID {
		return domain.Subscription{}, pgx.ErrNoRows
	}
	delete(m.subs, subscriptionID)
	return sub, nil
}

func (m *memoryExpenseRepo) ListSubscriptions(ctx context.Context, userID string, filter domain.ExpenseFilter) ([]domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Subscription, 0)
	for _, s := range m.subs {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
