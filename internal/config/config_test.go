package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesPolicyOverrides(t *testing.T) {
	t.Setenv("POLICY_DECLINE_COOLDOWN_DAYS", "3")
	t.Setenv("POLICY_OPPOSITE_GENDER_ONLY", "false")
	t.Setenv("POLICY_MESSAGES_PER_MINUTE", "not-a-number")
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "prod-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 72*time.Hour, cfg.Policy.DeclineCooldown())
	assert.False(t, cfg.Policy.OppositeGenderOnly)
	assert.Equal(t, 20, cfg.Policy.MessagesPerMinute)
	assert.False(t, cfg.Payment.AllowTestPayments)
}

func TestLoadRequiresJWTSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "x")
	_, err := Load()
	assert.Error(t, err)
}

func TestPolicyLocationFallsBackToUTC(t *testing.T) {
	p := DefaultPolicy()
	p.Timezone = "Nowhere/Invalid"
	assert.Equal(t, time.UTC, p.Location())
	assert.Equal(t, 5*time.Minute, PolicyConfig{}.OnlineWindow())
}
