package app

import (
	"testing"
	"time"

	"github.com/authmesh/authcore/services/auth"
	"github.com/authmesh/authcore/testutils"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestApp_FullLoginFlow(t *testing.T) {
	var authSvc *auth.Service

	app, err := NewApp().
		WithConfig(testutils.GetTestConfig()).
		WithAuth().
		WithFxOptions(fx.Invoke(func(svc *auth.Service) {
			authSvc = svc
		})).
		Build()
	require.NoError(t, err)

	require.NoError(t, app.Start())
	defer app.Stop()

	_, err = authSvc.Register(auth.RegisterRequest{
		Name:            "Builder User",
		Age:             28,
		Username:        "builder_user",
		Email:           "builder@example.com",
		Password:        testutils.TestPasswords.Valid,
		PasswordConfirm: testutils.TestPasswords.Valid,
	})
	require.NoError(t, err)

	sessions := app.Sessions()
	result, err := sessions.Login("builder_user", testutils.TestPasswords.Valid)
	require.NoError(t, err)
	require.True(t, result.RequiresOTPSetup)

	code, err := totp.GenerateCode(*result.User.OTPSecret, time.Now())
	require.NoError(t, err)

	trusted, err := sessions.StepUp(result.User, code, time.Hour)
	require.NoError(t, err)

	claims, err := sessions.AuthorizeWithOTPTrust(trusted)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
}
