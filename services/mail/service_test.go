package mail

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/authmesh/authcore/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService(t *testing.T) {
	cfg := testutils.GetTestConfig()

	svc, err := NewService(cfg, nil)

	require.NoError(t, err)
	require.NotNil(t, svc)
}

func TestNewService_RequiresFromAddress(t *testing.T) {
	cfg := testutils.GetTestConfig()
	cfg.Mail.FromAddress = ""

	svc, err := NewService(cfg, nil)

	require.Error(t, err)
	assert.Nil(t, svc)
	assert.Contains(t, err.Error(), "from address is required")
}

func TestService_RenderBuiltinTemplates(t *testing.T) {
	cfg := testutils.GetTestConfig()
	svc, err := NewService(cfg, nil)
	require.NoError(t, err)

	t.Run("forgot password email", func(t *testing.T) {
		html, err := svc.Render("forgot_password", map[string]any{
			"Name":     "Alice",
			"ResetURL": "http://localhost:8080/api/auth/reset-password/alice_dev/abc123",
			"AppName":  "authcore",
			"Expiry":   "15m0s",
		})

		require.NoError(t, err)
		assert.Contains(t, html, "Hi Alice,")
		assert.Contains(t, html, "http://localhost:8080/api/auth/reset-password/alice_dev/abc123")
		assert.Contains(t, html, "15m0s")
	})

	t.Run("reset confirmation page", func(t *testing.T) {
		html, err := svc.Render("reset_password", map[string]any{
			"Name":        "Alice",
			"AppName":     "authcore",
			"NewPassword": "n3wPassw0rd",
		})

		require.NoError(t, err)
		assert.Contains(t, html, "n3wPassw0rd")
	})

	t.Run("unknown template", func(t *testing.T) {
		_, err := svc.Render("nonexistent", nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown mail template")
	})
}

func TestService_TemplateOverride(t *testing.T) {
	dir := t.TempDir()
	override := filepath.Join(dir, "forgot_password.html")
	require.NoError(t, os.WriteFile(override, []byte("custom body for {{.Name}}"), 0o644))

	cfg := testutils.GetTestConfig()
	cfg.Mail.TemplatesDir = dir

	svc, err := NewService(cfg, nil)
	require.NoError(t, err)

	html, err := svc.Render("forgot_password", map[string]any{"Name": "Alice"})

	require.NoError(t, err)
	assert.Equal(t, "custom body for Alice", html)
}

func TestService_EscapesTemplateData(t *testing.T) {
	cfg := testutils.GetTestConfig()
	svc, err := NewService(cfg, nil)
	require.NoError(t, err)

	html, err := svc.Render("reset_password", map[string]any{
		"Name":        "<script>alert(1)</script>",
		"AppName":     "authcore",
		"NewPassword": "pw",
	})

	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
}
