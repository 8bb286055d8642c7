package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/config"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "a-very-long-test-secret-of-32-bytes!"

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := strings.Join([]string{
		"server:",
		"  log_level: debug",
		"auth:",
		"  jwt_secret: " + testSecret,
		"store:",
		"  driver: memory",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	cfgPath := writeConfig(t)
	userID := uuid.New()

	out, err := execute(t, "token", "--config", cfgPath, "--user", userID.String(), "--role", "teacher")
	require.NoError(t, err)

	jwtService, err := auth.NewJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetimeMinutes: 60})
	require.NoError(t, err)
	claims, err := jwtService.ValidateToken(context.Background(), strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, domain.Identity{UserID: userID, Role: domain.RoleTeacher}, claims.Identity())
}

func TestTokenCommandRejectsBadInput(t *testing.T) {
	cfgPath := writeConfig(t)

	_, err := execute(t, "token", "--config", cfgPath, "--role", "principal")
	assert.ErrorContains(t, err, "invalid --role")

	_, err = execute(t, "token", "--config", cfgPath, "--user", "42")
	assert.ErrorContains(t, err, "invalid --user")
}

func TestSweepCommandWithMemoryStore(t *testing.T) {
	out, err := execute(t, "sweep", "--config", writeConfig(t))
	require.NoError(t, err)
	assert.Equal(t, "deactivated 0 expired grants\n", out)
}

func TestMigrateRequiresDatabaseURL(t *testing.T) {
	_, err := execute(t, "migrate", "up", "--config", writeConfig(t))
	assert.ErrorContains(t, err, "database.url")
}

func TestMissingConfigFile(t *testing.T) {
	_, err := execute(t, "sweep", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
