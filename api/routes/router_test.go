package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/quorumhq/quorum-backend/internal/adoption"
	"github.com/quorumhq/quorum-backend/internal/ledger"
	"github.com/quorumhq/quorum-backend/internal/notifications"
	pkgauth "github.com/quorumhq/quorum-backend/pkg/auth"
	"github.com/quorumhq/quorum-backend/pkg/config"
	"github.com/quorumhq/quorum-backend/pkg/logger"
	"github.com/quorumhq/quorum-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubAdoptionService struct {
	adopt func(ctx context.Context, input adoption.AdoptInput) (*adoption.AdoptResult, error)
}

func (s stubAdoptionService) Adopt(ctx context.Context, input adoption.AdoptInput) (*adoption.AdoptResult, error) {
	if s.adopt != nil {
		return s.adopt(ctx, input)
	}
	return &adoption.AdoptResult{}, nil
}

func (s stubAdoptionService) Revoke(ctx context.Context, input adoption.RevokeInput) (*adoption.RevokeResult, error) {
	return &adoption.RevokeResult{}, nil
}

type stubLedgerService struct {
	balance func(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Award implements [ledger.Service].
func (s stubLedgerService) Award(ctx context.Context, input ledger.MovementInput) (*ledger.MovementResult, error) {
	panic("unimplemented")
}

// AwardTx implements [ledger.Service].
func (s stubLedgerService) AwardTx(ctx context.Context, tx *gorm.DB, input ledger.MovementInput) (*ledger.MovementResult, error) {
	panic("unimplemented")
}

func (s stubLedgerService) Deduct(ctx context.Context, input ledger.MovementInput) (*ledger.MovementResult, error) {
	return &ledger.MovementResult{}, nil
}

func (s stubLedgerService) BalanceOf(ctx context.Context, userID uuid.UUID) (int64, error) {
	if s.balance != nil {
		return s.balance(ctx, userID)
	}
	return 0, nil
}

func (s stubLedgerService) History(ctx context.Context, params ledger.HistoryParams) (*ledger.HistoryResult, error) {
	return &ledger.HistoryResult{}, nil
}

func (s stubLedgerService) Reconcile(ctx context.Context, userID uuid.UUID) (*ledger.ReconcileResult, error) {
	return &ledger.ReconcileResult{Consistent: true}, nil
}

type stubNotificationsService struct{}

func (stubNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{}, nil
}

func (stubNotificationsService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return nil
}

func (stubNotificationsService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config, svc adoption.Service, ledgerSvc ledger.Service) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		(*redis.Client)(nil),
		svc,
		ledgerSvc,
		stubNotificationsService{},
		prometheus.NewRegistry(),
	)
}

func buildToken(t *testing.T, cfg *config.Config, userID uuid.UUID) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: userID,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig(), stubAdoptionService{}, stubLedgerService{})
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
}

func TestMetricsEndpointRegistered(t *testing.T) {
	router := newTestRouter(testConfig(), stubAdoptionService{}, stubLedgerService{})
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for metrics got %d", resp.Code)
	}
}

func TestPublicPing(t *testing.T) {
	router := newTestRouter(testConfig(), stubAdoptionService{}, stubLedgerService{})
	req := httptest.NewRequest(http.MethodGet, "/api/public/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public ping got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig(), stubAdoptionService{}, stubLedgerService{})
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, stubAdoptionService{}, stubLedgerService{})
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for private ping got %d", resp.Code)
	}
}

func TestPointBalanceReachesService(t *testing.T) {
	cfg := testConfig()
	userID := uuid.New()
	called := false
	ledgerSvc := stubLedgerService{
		balance: func(ctx context.Context, id uuid.UUID) (int64, error) {
			called = true
			if id != userID {
				t.Fatalf("expected balance lookup for %s got %s", userID, id)
			}
			return 120, nil
		},
	}
	router := newTestRouter(cfg, stubAdoptionService{}, ledgerSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/points/balance", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, userID))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for balance got %d", resp.Code)
	}
	if !called {
		t.Fatal("expected balance service to be invoked")
	}
}

func TestAdoptRequiresIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, stubAdoptionService{}, stubLedgerService{})

	path := "/api/v1/questions/" + uuid.NewString() + "/answers/" + uuid.NewString() + "/adopt"
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key got %d", resp.Code)
	}
}
