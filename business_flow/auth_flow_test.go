package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/ea7klk/bm-stats/app/dto"
	"github.com/ea7klk/bm-stats/app/services"
	"github.com/ea7klk/bm-stats/models"
	"github.com/ea7klk/bm-stats/repository"
	testingutil "github.com/ea7klk/bm-stats/testing"
	"github.com/ea7klk/bm-stats/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// authTestEnv bundles everything the account lifecycle tests need.
type authTestEnv struct {
	db         *testingutil.TestDB
	fixtures   *testingutil.TestFixtures
	userRepo   repository.UserRepository
	signupFlow SignupFlow
	loginFlow  LoginFlow
	apiKeyFlow APIKeyFlow
}

func setupAuthTest(t *testing.T) *authTestEnv {
	t.Helper()

	testDB, err := testingutil.SetupTestDB()
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := testDB.TeardownTestDB(); err != nil {
			t.Logf("teardown: %v", err)
		}
	})

	userRepo := repository.NewUserRepository(testDB.DB)
	sessionRepo := repository.NewUserSessionRepository(testDB.DB)
	tokenRepo := repository.NewVerificationTokenRepository(testDB.DB)
	apiKeyRepo := repository.NewAPIKeyRepository(testDB.DB)

	tokenService, err := services.NewTokenService(
		15*time.Minute,
		24*time.Hour,
		"test-issuer",
		"test-audience",
		false, "", "",
		"test-secret-key-for-jwt-signing-32-chars",
	)
	require.NoError(t, err)

	notificationService := services.NewNotificationService(services.NewMockEmailProvider())

	return &authTestEnv{
		db:         testDB,
		fixtures:   testingutil.NewTestFixtures(testDB),
		userRepo:   userRepo,
		signupFlow: NewSignupFlow(userRepo, tokenRepo, notificationService, testDB.DB),
		loginFlow:  NewLoginFlow(userRepo, sessionRepo, tokenRepo, tokenService, notificationService, testDB.DB),
		apiKeyFlow: NewAPIKeyFlow(apiKeyRepo, userRepo),
	}
}

func testMetadata() *ClientMetadata {
	return &ClientMetadata{IPAddress: "127.0.0.1", UserAgent: "test-agent"}
}

func TestSignupAndVerify(t *testing.T) {
	env := setupAuthTest(t)
	ctx := context.Background()

	req := &dto.SignupRequest{
		Callsign:        "ea7klk",
		Name:            "Victor",
		Email:           "Victor@Example.com",
		Password:        "SecurePass123",
		ConfirmPassword: "SecurePass123",
		Language:        "es",
	}

	resp, err := env.signupFlow.Signup(ctx, req, testMetadata())
	require.NoError(t, err)
	assert.NotZero(t, resp.UserID)
	assert.True(t, resp.VerificationSent)

	user, err := env.userRepo.ByEmail(ctx, "victor@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "EA7KLK", user.Callsign)
	assert.False(t, *user.IsEmailVerified)

	t.Run("duplicate email rejected", func(t *testing.T) {
		_, err := env.signupFlow.Signup(ctx, req, testMetadata())
		assert.True(t, IsEmailAlreadyExists(err))
	})

	t.Run("login before verification rejected", func(t *testing.T) {
		_, err := env.loginFlow.Login(ctx, &dto.LoginRequest{
			Email:    "victor@example.com",
			Password: "SecurePass123",
		}, testMetadata())
		assert.True(t, IsEmailNotVerified(err))
	})

	t.Run("verify email", func(t *testing.T) {
		var token models.VerificationToken
		require.NoError(t, env.db.DB.Where("user_id = ? AND purpose = ?", user.ID, models.TokenPurposeEmailVerify).First(&token).Error)

		resp, err := env.signupFlow.VerifyEmail(ctx, &dto.VerifyEmailRequest{Token: token.Token}, testMetadata())
		require.NoError(t, err)
		assert.True(t, utils.IsTrue(resp.User.IsEmailVerified))

		// Token is single-use
		_, err = env.signupFlow.VerifyEmail(ctx, &dto.VerifyEmailRequest{Token: token.Token}, testMetadata())
		assert.Error(t, err)
	})

	t.Run("login after verification", func(t *testing.T) {
		resp, err := env.loginFlow.Login(ctx, &dto.LoginRequest{
			Email:    "victor@example.com",
			Password: "SecurePass123",
		}, testMetadata())
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Session.AccessToken)
		assert.NotEmpty(t, resp.Session.RefreshToken)
		assert.Equal(t, "EA7KLK", resp.User.Callsign)
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		_, err := env.loginFlow.Login(ctx, &dto.LoginRequest{
			Email:    "victor@example.com",
			Password: "WrongPass123",
		}, testMetadata())
		assert.True(t, IsIncorrectPassword(err))
	})

	t.Run("unknown email rejected", func(t *testing.T) {
		_, err := env.loginFlow.Login(ctx, &dto.LoginRequest{
			Email:    "nobody@example.com",
			Password: "SecurePass123",
		}, testMetadata())
		assert.True(t, IsUserNotFound(err))
	})
}

func TestVerifyEmailTokenStates(t *testing.T) {
	env := setupAuthTest(t)
	ctx := context.Background()

	user, err := env.fixtures.CreateUnverifiedTestUser()
	require.NoError(t, err)

	t.Run("unknown token", func(t *testing.T) {
		_, err := env.signupFlow.VerifyEmail(ctx, &dto.VerifyEmailRequest{
			Token: "0000000000000000000000000000000000000000000000000000000000000000",
		}, testMetadata())
		assert.True(t, IsVerificationTokenNotFound(err))
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := env.fixtures.CreateExpiredVerificationToken(user.ID, models.TokenPurposeEmailVerify)
		require.NoError(t, err)

		_, err = env.signupFlow.VerifyEmail(ctx, &dto.VerifyEmailRequest{Token: token.Token}, testMetadata())
		assert.True(t, IsVerificationTokenExpired(err))
	})
}

func TestRefreshAndLogout(t *testing.T) {
	env := setupAuthTest(t)
	ctx := context.Background()

	user, err := env.fixtures.CreateTestUser()
	require.NoError(t, err)

	login, err := env.loginFlow.Login(ctx, &dto.LoginRequest{
		Email:    user.Email,
		Password: "TestPass123",
	}, testMetadata())
	require.NoError(t, err)

	t.Run("refresh rotates the session", func(t *testing.T) {
		resp, err := env.loginFlow.RefreshToken(ctx, &dto.RefreshTokenRequest{
			RefreshToken: login.Session.RefreshToken,
		}, testMetadata())
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Session.AccessToken)
		assert.NotEqual(t, login.Session.AccessToken, resp.Session.AccessToken)

		// Old refresh token no longer works
		_, err = env.loginFlow.RefreshToken(ctx, &dto.RefreshTokenRequest{
			RefreshToken: login.Session.RefreshToken,
		}, testMetadata())
		assert.Error(t, err)
	})

	t.Run("logout expires the session", func(t *testing.T) {
		fresh, err := env.loginFlow.Login(ctx, &dto.LoginRequest{
			Email:    user.Email,
			Password: "TestPass123",
		}, testMetadata())
		require.NoError(t, err)

		_, err = env.loginFlow.Logout(ctx, fresh.Session.AccessToken, testMetadata())
		require.NoError(t, err)

		_, err = env.loginFlow.RefreshToken(ctx, &dto.RefreshTokenRequest{
			RefreshToken: fresh.Session.RefreshToken,
		}, testMetadata())
		assert.Error(t, err)
	})
}

func TestPasswordReset(t *testing.T) {
	env := setupAuthTest(t)
	ctx := context.Background()

	user, err := env.fixtures.CreateTestUser()
	require.NoError(t, err)

	t.Run("forgot password is silent for unknown emails", func(t *testing.T) {
		resp, err := env.loginFlow.ForgotPassword(ctx, &dto.ForgotPasswordRequest{
			Email: "nobody@example.com",
		}, testMetadata())
		require.NoError(t, err)
		assert.NotNil(t, resp)
	})

	t.Run("reset with mailed token", func(t *testing.T) {
		_, err := env.loginFlow.ForgotPassword(ctx, &dto.ForgotPasswordRequest{Email: user.Email}, testMetadata())
		require.NoError(t, err)

		var token models.VerificationToken
		require.NoError(t, env.db.DB.Where("user_id = ? AND purpose = ?", user.ID, models.TokenPurposePasswordReset).First(&token).Error)

		_, err = env.loginFlow.ResetPassword(ctx, &dto.ResetPasswordRequest{
			Token:           token.Token,
			NewPassword:     "BrandNewPass1",
			ConfirmPassword: "BrandNewPass1",
		}, testMetadata())
		require.NoError(t, err)

		// Old password no longer works, new one does
		_, err = env.loginFlow.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: "TestPass123"}, testMetadata())
		assert.True(t, IsIncorrectPassword(err))

		_, err = env.loginFlow.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: "BrandNewPass1"}, testMetadata())
		assert.NoError(t, err)
	})
}

func TestAPIKeyLifecycle(t *testing.T) {
	env := setupAuthTest(t)
	ctx := context.Background()

	user, err := env.fixtures.CreateTestUser()
	require.NoError(t, err)
	other, err := env.fixtures.CreateTestUser()
	require.NoError(t, err)

	created, err := env.apiKeyFlow.CreateAPIKey(ctx, user.ID, &dto.CreateAPIKeyRequest{Label: "grafana"})
	require.NoError(t, err)
	require.NotEmpty(t, created.APIKey.Key)

	t.Run("raw key authenticates", func(t *testing.T) {
		key, err := env.apiKeyFlow.Authenticate(ctx, created.APIKey.Key)
		require.NoError(t, err)
		assert.Equal(t, user.ID, key.UserID)
	})

	t.Run("listing masks key material", func(t *testing.T) {
		resp, err := env.apiKeyFlow.ListAPIKeys(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, resp.APIKeys, 1)
		assert.Empty(t, resp.APIKeys[0].Key)
		assert.NotEmpty(t, resp.APIKeys[0].MaskedKey)
		assert.NotEqual(t, created.APIKey.Key, resp.APIKeys[0].MaskedKey)
	})

	t.Run("foreign key cannot be revoked", func(t *testing.T) {
		_, err := env.apiKeyFlow.RevokeAPIKey(ctx, other.ID, created.APIKey.ID)
		assert.True(t, IsAPIKeyAccessDenied(err))
	})

	t.Run("revoked key stops authenticating", func(t *testing.T) {
		_, err := env.apiKeyFlow.RevokeAPIKey(ctx, user.ID, created.APIKey.ID)
		require.NoError(t, err)

		_, err = env.apiKeyFlow.Authenticate(ctx, created.APIKey.Key)
		assert.Error(t, err)
	})

	t.Run("garbage key rejected", func(t *testing.T) {
		_, err := env.apiKeyFlow.Authenticate(ctx, "not-a-uuid")
		assert.Error(t, err)
	})
}

func TestGenerateVerificationToken(t *testing.T) {
	token, err := GenerateVerificationToken()
	require.NoError(t, err)
	assert.Len(t, token, 64)

	other, err := GenerateVerificationToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}
