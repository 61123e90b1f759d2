package services

import (
	"context"
	"testing"
	"time"

	"referrals/internal/models"
	"referrals/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditService(t *testing.T) {
	db := testutil.NewDB(t)
	logger := testutil.NewLogger()
	service := NewAuditService(db, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go service.Start(ctx)

	t.Run("Log Action", func(t *testing.T) {
		userID := uint(1)
		service.LogAction(AuditEntry{
			UserID:    &userID,
			Action:    ActionActivateCode,
			EntityID:  "ABC123",
			Details:   map[string]string{"foo": "bar"},
			IPAddress: "127.0.0.1",
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		})

		var log models.AuditLog
		require.Eventually(t, func() bool {
			return db.Where("action = ?", ActionActivateCode).First(&log).Error == nil
		}, time.Second, 10*time.Millisecond)

		assert.Equal(t, "ABC123", log.EntityID)
		assert.Contains(t, log.Details, "foo")
		assert.Contains(t, log.UserAgent, "Chrome")
		assert.Contains(t, log.UserAgent, "Linux")
	})

	t.Run("Channel Full", func(t *testing.T) {
		idle := NewAuditService(db, logger)
		for i := 0; i < auditBufferSize; i++ {
			idle.LogAction(AuditEntry{Action: "ACTION"})
		}
		idle.LogAction(AuditEntry{Action: "DROP"})
		assert.Len(t, idle.entries, auditBufferSize)
	})

	t.Run("Drain On Stop", func(t *testing.T) {
		pending := NewAuditService(db, logger)
		pending.LogAction(AuditEntry{Action: "PENDING"})

		stopCtx, stop := context.WithCancel(context.Background())
		stop()
		pending.Start(stopCtx)

		var count int64
		db.Model(&models.AuditLog{}).Where("action = ?", "PENDING").Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("DB Error", func(t *testing.T) {
		dbErr := testutil.NewDB(t)
		dbErr.Migrator().DropTable(&models.AuditLog{})
		serviceErr := NewAuditService(dbErr, logger)

		serviceErr.LogAction(AuditEntry{Action: "ERROR"})
		stopCtx, stop := context.WithCancel(context.Background())
		stop()
		assert.NotPanics(t, func() { serviceErr.Start(stopCtx) })
	})
}

func TestSummarizeUserAgent(t *testing.T) {
	assert.Equal(t, "", summarizeUserAgent(""))
	assert.Contains(t, summarizeUserAgent("Googlebot/2.1 (+http://www.google.com/bot.html)"), "Bot")
	assert.Contains(t, summarizeUserAgent("curl/8.4.0"), "curl")
}
