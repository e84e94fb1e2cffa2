package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/authmesh/authcore/services/user"
	"github.com/authmesh/authcore/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testHost = "http://localhost:8080"

// capturingMailer records sends so tests can pull the raw secret out of the
// reset URL the way a user would from the email.
type capturingMailer struct {
	templateName string
	to           []string
	data         map[string]any
	fail         bool
}

func (m *capturingMailer) SendTemplate(templateName string, to []string, subject string, data map[string]any) error {
	m.templateName = templateName
	m.to = to
	m.data = data
	if m.fail {
		return errors.New("smtp unreachable")
	}
	return nil
}

func (m *capturingMailer) sentSecret(t *testing.T) string {
	resetURL, ok := m.data["ResetURL"].(string)
	require.True(t, ok, "no reset URL captured")
	parts := strings.Split(resetURL, "/")
	return parts[len(parts)-1]
}

func newResetFixture(t *testing.T) (*Service, *user.Service, *capturingMailer, *user.User) {
	svc, users := newTestService(t)
	mailer := &capturingMailer{}
	svc.SetMailService(mailer)
	u := registerAlice(t, svc)
	return svc, users, mailer, u
}

func TestService_RequestReset(t *testing.T) {
	svc, users, mailer, u := newResetFixture(t)

	t.Run("unknown username and wrong email fail identically", func(t *testing.T) {
		errUnknown := svc.RequestReset(testHost, "nobody_here", "alice@example.com")
		errWrongEmail := svc.RequestReset(testHost, "alice_dev", "other@example.com")

		testutils.AssertErrorType(t, user.ErrAccountNotFound, errUnknown)
		testutils.AssertErrorType(t, user.ErrAccountNotFound, errWrongEmail)
		assert.Equal(t, errUnknown.Error(), errWrongEmail.Error())
	})

	t.Run("successful request persists hashed secret and emails the link", func(t *testing.T) {
		require.NoError(t, svc.RequestReset(testHost, "alice_dev", "alice@example.com"))

		assert.Equal(t, "forgot_password", mailer.templateName)
		assert.Equal(t, []string{"alice@example.com"}, mailer.to)

		secret := mailer.sentSecret(t)
		assert.Len(t, secret, 12)

		ticket, err := users.FindResetTicket(u.ID)
		require.NoError(t, err)
		require.NotNil(t, ticket.Secret)
		assert.NotEqual(t, secret, *ticket.Secret)
		assert.Contains(t, mailer.data["ResetURL"], testHost+"/api/auth/reset-password/alice_dev/")
	})

	t.Run("second request overwrites the ticket, old link dies", func(t *testing.T) {
		require.NoError(t, svc.RequestReset(testHost, "alice_dev", "alice@example.com"))
		firstSecret := mailer.sentSecret(t)

		require.NoError(t, svc.RequestReset(testHost, "alice_dev", "alice@example.com"))
		secondSecret := mailer.sentSecret(t)
		require.NotEqual(t, firstSecret, secondSecret)

		_, err := svc.ConsumeReset("alice_dev", firstSecret)
		testutils.AssertErrorType(t, ErrIncorrectSecret, err)
	})

	t.Run("email delivery failure does not fail the request", func(t *testing.T) {
		mailer.fail = true
		defer func() { mailer.fail = false }()

		assert.NoError(t, svc.RequestReset(testHost, "alice_dev", "alice@example.com"))
	})
}

func TestService_ConsumeReset(t *testing.T) {
	svc, users, mailer, u := newResetFixture(t)

	t.Run("unknown username", func(t *testing.T) {
		_, err := svc.ConsumeReset("nobody_here", "whatever")
		testutils.AssertErrorType(t, user.ErrAccountNotFound, err)
	})

	t.Run("no ticket", func(t *testing.T) {
		_, err := svc.ConsumeReset("alice_dev", "whatever")
		testutils.AssertErrorType(t, user.ErrResetTicketNotFound, err)
	})

	t.Run("request then consume assigns a fresh verifiable password", func(t *testing.T) {
		require.NoError(t, svc.RequestReset(testHost, "alice_dev", "alice@example.com"))
		secret := mailer.sentSecret(t)

		newPassword, err := svc.ConsumeReset("alice_dev", secret)
		require.NoError(t, err)
		assert.Len(t, newPassword, 12)

		stored, err := users.FindByID(u.ID)
		require.NoError(t, err)
		assert.NoError(t, svc.VerifyPassword(stored.Password, newPassword))

		assert.Equal(t, "reset_password", mailer.templateName)
		assert.Equal(t, newPassword, mailer.data["NewPassword"])

		t.Run("replay with the same secret fails - ticket consumed", func(t *testing.T) {
			_, err := svc.ConsumeReset("alice_dev", secret)
			testutils.AssertErrorType(t, user.ErrResetTicketNotFound, err)
		})
	})

	t.Run("wrong secret", func(t *testing.T) {
		require.NoError(t, svc.RequestReset(testHost, "alice_dev", "alice@example.com"))

		_, err := svc.ConsumeReset("alice_dev", "definitely-not")
		testutils.AssertErrorType(t, ErrIncorrectSecret, err)
	})

	t.Run("expired ticket fails even with the correct secret", func(t *testing.T) {
		require.NoError(t, svc.RequestReset(testHost, "alice_dev", "alice@example.com"))
		secret := mailer.sentSecret(t)

		stale := time.Now().Add(-svc.config.Auth.ResetExpiry - time.Minute)
		err := users.DB().Model(&user.PasswordReset{}).
			Where("user_id = ?", u.ID).
			UpdateColumn("updated_at", stale).Error
		require.NoError(t, err)

		_, err = svc.ConsumeReset("alice_dev", secret)
		testutils.AssertErrorType(t, ErrResetExpired, err)
	})
}

func TestService_RequestReset_MockMailService(t *testing.T) {
	svc, _ := newTestService(t)
	registerAlice(t, svc)

	mockMail := &testutils.MockMailService{}
	mockMail.On("SendTemplate", "forgot_password", []string{"alice@example.com"}, "Forgot password", mock.Anything).Return(nil)
	svc.SetMailService(mockMail)

	require.NoError(t, svc.RequestReset(testHost, "alice_dev", "alice@example.com"))

	mockMail.AssertExpectations(t)
}
