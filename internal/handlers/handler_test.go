package handlers

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"referrals/internal/cache"
	"referrals/internal/config"
	"referrals/internal/models"
	"referrals/internal/repository"
	"referrals/internal/services"
	"referrals/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestHandler(t *testing.T) (*Handler, *gorm.DB, *miniredis.Miniredis) {
	t.Helper()

	db := testutil.NewDB(t)
	mr, rdb := testutil.NewRedis(t)
	logger := testutil.NewLogger()
	cfg := config.Config{PublicBaseURL: "http://localhost:8080"}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	audit := services.NewAuditService(db, logger)
	ctx, cancel := context.WithCancel(context.Background())
	go audit.Start(ctx)
	t.Cleanup(cancel)

	h := NewHandler(
		cfg,
		logger,
		services.NewUserService(repository.NewUserRepository(db), logger),
		services.NewReferralService(repository.NewReferralCodeRepository(db), cache.New(rdb), logger),
		services.NewTokenService(jwt.SigningMethodRS256, key, &key.PublicKey, 30*time.Minute),
		audit,
		services.NewQRService(cfg.PublicBaseURL),
	)
	return h, db, mr
}

func setupTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return h.SetupRouter(nil)
}

// bearer issues a valid access token for user.
func bearer(t *testing.T, h *Handler, user models.User) string {
	t.Helper()
	token, _, err := h.tokenService.Issue(user)
	require.NoError(t, err)
	return token
}

func doRequest(r http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
