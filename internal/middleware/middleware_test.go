package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ppob-backend/internal/apperr"
	"ppob-backend/internal/auth"
	"ppob-backend/internal/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type fakeVerifier struct {
	VerifyFunc func(token string) (*auth.Identity, error)
}

func (f *fakeVerifier) Verify(ctx context.Context, token string) (*auth.Identity, error) {
	return f.VerifyFunc(token)
}

type memAccounts struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
}

func (m *memAccounts) GetAccount(ctx context.Context, uid string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[uid]
	if !ok {
		return nil, apperr.NotFound("User not found")
	}
	cp := *a
	return &cp, nil
}

func (m *memAccounts) CreateAccount(ctx context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.ID]; ok {
		return apperr.AlreadyExists("User already exists")
	}
	cp := *a
	m.accounts[a.ID] = &cp
	return nil
}

func newRouter(v auth.Verifier, accounts AccountProvisioner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(v, accounts), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uid": CurrentUID(c), "role": CurrentAccount(c).Role})
	})
	r.GET("/admin", AuthMiddleware(v, accounts), AdminOnly(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func goodVerifier() *fakeVerifier {
	return &fakeVerifier{VerifyFunc: func(token string) (*auth.Identity, error) {
		if token != "valid" {
			return nil, apperr.New(apperr.KindUnauthorized, "Invalid token")
		}
		return &auth.Identity{UID: "u1", Email: "u1@mail.com", Name: "User Satu"}, nil
	}}
}

func TestAuthRejectsMissingOrMalformedToken(t *testing.T) {
	r := newRouter(goodVerifier(), &memAccounts{accounts: map[string]*models.Account{}})

	for _, header := range []string{"", "valid", "Basic valid", "Bearer ", "Bearer wrong"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected 401, got %d", header, w.Code)
		}
	}
}

func TestAuthCreatesAccountOnFirstUse(t *testing.T) {
	accounts := &memAccounts{accounts: map[string]*models.Account{}}
	r := newRouter(goodVerifier(), accounts)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer valid")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	acc, err := accounts.GetAccount(context.Background(), "u1")
	if err != nil {
		t.Fatalf("account not provisioned: %v", err)
	}
	if acc.Points != 0 || acc.Role != models.RoleUser || acc.DisplayName == nil || *acc.DisplayName != "User Satu" {
		t.Fatalf("unexpected account: %+v", acc)
	}
}

func TestAdminOnly(t *testing.T) {
	accounts := &memAccounts{accounts: map[string]*models.Account{
		"u1": {ID: "u1", Email: "u1@mail.com", Role: models.RoleUser},
	}}
	r := newRouter(goodVerifier(), accounts)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer valid")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for regular user, got %d", w.Code)
	}

	accounts.accounts["u1"].Role = models.RoleAdmin
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", w.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", RateLimitMiddleware(1, 2), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := []int{}
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %v", codes)
	}
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware("https://app.example.com"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestVisitorTableEvictsIdleIPs(t *testing.T) {
	table := &visitorTable{visitors: map[string]*visitor{}, limit: rate.Limit(1), burst: 1}
	start := time.Now()

	if !table.allow("10.0.0.1", start) {
		t.Fatal("first request must pass")
	}
	if table.allow("10.0.0.1", start) {
		t.Fatal("burst of 1 must reject the second request")
	}
	table.allow("10.0.0.2", start.Add(4*time.Minute))

	if n := table.evictIdle(start.Add(4*time.Minute), 3*time.Minute); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if _, ok := table.visitors["10.0.0.2"]; !ok {
		t.Fatal("active visitor must be kept")
	}
}
