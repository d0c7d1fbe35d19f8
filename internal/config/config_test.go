package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestFromViperAppliesDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("jwt.secret", "top-secret")
	v.Set("admin.email", "  Head@School.EDU ")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	require.Equal(t, 7*24*time.Hour, cfg.JWTExpiresIn)
	require.Equal(t, 12, cfg.BcryptCost)
	require.Equal(t, "head@school.edu", cfg.AdminEmail)
	require.Equal(t, "Counseling API", cfg.SMTP.FromName)
	require.False(t, cfg.SMTP.Enabled())
	require.False(t, cfg.IsProduction())
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, "*", cfg.CORSOrigins)
}

func TestFromViperRequiresSecret(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	_, err := fromViper(v)
	require.Error(t, err)
}

func TestFromViperRejectsInvalidDuration(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("jwt.secret", "secret")
	v.Set("jwt.expires_in", "seven days")

	_, err := fromViper(v)
	require.Error(t, err)
}

func TestFromViperClampsBcryptCost(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("jwt.secret", "secret")
	v.Set("bcrypt.cost", 99)
	v.Set("app.env", "Production")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	require.Equal(t, 12, cfg.BcryptCost)
	require.True(t, cfg.IsProduction())
}
