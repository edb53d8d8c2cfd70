package rest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwise1/gunaso/internal/model"
	"github.com/bwise1/gunaso/util"
	"github.com/bwise1/gunaso/util/logger"
	"github.com/bwise1/gunaso/util/values"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const (
	codeTypeRegister = "register"
	codeTypeLogin    = "login"
	codeLifetime     = time.Hour
)

type TokenClaims struct {
	UserID string `json:"sub"`
	Type   string `json:"typ"`
	Role   string `json:"role"`
	Exp    int64  `json:"exp"`
}

type googleUser struct {
	Email         string
	GivenName     string
	FamilyName    string
	VerifiedEmail bool
}

// fetchGoogleUser resolves a Google access token to the account behind it.
var fetchGoogleUser = func(ctx context.Context, conf *oauth2.Config, accessToken string) (googleUser, error) {
	client := conf.Client(ctx, &oauth2.Token{AccessToken: accessToken})
	svc, err := oauth2api.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return googleUser{}, fmt.Errorf("oauth2.NewService: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return googleUser{}, fmt.Errorf("google userinfo.get: %w", err)
	}
	user := googleUser{
		Email:      info.Email,
		GivenName:  info.GivenName,
		FamilyName: info.FamilyName,
	}
	if info.VerifiedEmail != nil {
		user.VerifiedEmail = *info.VerifiedEmail
	}
	return user, nil
}

func (api *API) googleOAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		RedirectURL:  api.Config.GoogleRedirectURL,
		ClientID:     api.Config.GoogleClientID,
		ClientSecret: api.Config.GoogleClientSecret,
		Scopes:       []string{oauth2api.UserinfoEmailScope, oauth2api.UserinfoProfileScope},
		Endpoint:     google.Endpoint,
	}
}

func (api *API) signToken(id, role, tokenType, lifetime, secret string) (string, time.Time, error) {
	expTime, err := time.ParseDuration(lifetime)
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now()
	expiresAt := now.Add(expTime)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  id,
		"role": role,
		"exp":  expiresAt.Unix(),
		"iat":  now.Unix(),
		"typ":  tokenType,
		"jti":  uuid.NewString(),
	})

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

func (api *API) createToken(id, role string) (string, time.Time, error) {
	return api.signToken(id, role, "access", api.Config.JwtExpires, api.Config.JwtSecret)
}

func (api *API) createRefreshToken(id, role string) (string, time.Time, error) {
	return api.signToken(id, role, "refresh", api.Config.RefreshExpiry, api.Config.RefreshSecret)
}

// newSession mints an access and refresh pair without recording anything.
func (api *API) newSession(user model.User) (model.LoginResponse, time.Time, error) {
	token, _, err := api.createToken(user.ID.String(), user.Role)
	if err != nil {
		return model.LoginResponse{}, time.Time{}, err
	}
	refresh, refreshExp, err := api.createRefreshToken(user.ID.String(), user.Role)
	if err != nil {
		return model.LoginResponse{}, time.Time{}, err
	}

	return model.LoginResponse{
		User: &model.LoginUserResponse{
			ID:         user.ID,
			FirstName:  user.FirstName,
			LastName:   user.LastName,
			Email:      user.Email,
			Role:       user.Role,
			IsVerified: user.IsVerified,
		},
		Token:        token,
		RefreshToken: refresh,
	}, refreshExp, nil
}

// issueTokens creates an access and refresh pair and records the refresh token.
func (api *API) issueTokens(ctx context.Context, user model.User) (model.LoginResponse, error) {
	resp, refreshExp, err := api.newSession(user)
	if err != nil {
		return model.LoginResponse{}, err
	}
	if err := storeRefreshToken(ctx, api.DB, user.ID.String(), resp.RefreshToken, refreshExp); err != nil {
		return model.LoginResponse{}, err
	}
	return resp, nil
}

// allowAuthAttempt throttles code entry and code requests per email address.
func (api *API) allowAuthAttempt(ctx context.Context, action, email string) bool {
	key := action + ":" + strings.ToLower(email)
	return api.allow(ctx, key, api.Config.AuthRateLimit, api.Config.AuthRateWindow, 15*time.Minute)
}

func (api *API) sendCode(ctx context.Context, user model.User, codeType string) error {
	code := util.GenerateVerificationCode()
	expiresAt := time.Now().Add(codeLifetime)
	if err := api.StoreVerificationCode(ctx, user.ID.String(), user.Email, code, codeType, expiresAt); err != nil {
		return err
	}

	go func() {
		emailData := map[string]interface{}{
			"Code": code,
		}
		if err := api.Mailer.Send(user.Email, emailData, "verifyEmail.tmpl"); err != nil {
			logger.Error("failed to send verification email", zap.String("user_id", user.ID.String()), zap.Error(err))
		}
	}()
	return nil
}

func (api *API) CreateNewUser(ctx context.Context, req model.RegisterRequest) (model.VerifyCodeResponse, string, string, error) {
	req.Email = strings.TrimSpace(req.Email)

	if err := util.ValidEmail(req.Email); err != nil {
		return model.VerifyCodeResponse{}, values.BadRequestBody, "Invalid email address provided", err
	}

	exists, err := api.EmailExists(ctx, req.Email)
	if err != nil {
		return model.VerifyCodeResponse{}, values.Error, "Error checking email", err
	}
	if exists {
		return model.VerifyCodeResponse{}, values.Conflict, "Email already exists", errors.New("email already exists")
	}

	user := model.User{
		ID:           util.GenerateUUID(),
		Email:        req.Email,
		Role:         values.RoleCitizen,
		AuthProvider: "email",
	}

	if err := api.CreateNewUserRepo(ctx, user); err != nil {
		return model.VerifyCodeResponse{}, values.Error, "Error creating new user", err
	}

	if err := api.sendCode(ctx, user, codeTypeRegister); err != nil {
		return model.VerifyCodeResponse{}, values.Error, "Failed to store verification code", err
	}

	return model.VerifyCodeResponse{
		ID:    user.ID.String(),
		Email: user.Email,
	}, values.Created, "User created successfully", nil
}

func (api *API) LoginUser(ctx context.Context, req model.LoginRequest) (model.VerifyCodeResponse, string, string, error) {
	req.Email = strings.TrimSpace(req.Email)

	if err := util.ValidEmail(req.Email); err != nil {
		return model.VerifyCodeResponse{}, values.BadRequestBody, "Invalid email address provided", err
	}

	if !api.allowAuthAttempt(ctx, "login", req.Email) {
		return model.VerifyCodeResponse{}, values.TooManyRequest, "too many code requests, please try again later", errors.New("login rate limit exceeded")
	}

	user, err := api.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return model.VerifyCodeResponse{}, values.NotFound, "User not found", err
		}
		return model.VerifyCodeResponse{}, values.Error, values.SystemErr, err
	}

	if err := api.sendCode(ctx, user, codeTypeLogin); err != nil {
		return model.VerifyCodeResponse{}, values.Error, "Failed to store verification code", err
	}

	return model.VerifyCodeResponse{
		ID:    user.ID.String(),
		Email: user.Email,
	}, values.Success, "Verification code sent", nil
}

func (api *API) VerifyCodeHelper(ctx context.Context, req model.VerifyCodeRequest) (model.LoginResponse, string, string, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := util.ValidateStruct(req); err != nil {
		return model.LoginResponse{}, values.BadRequestBody, util.ValidationMessage(err), err
	}

	if !api.allowAuthAttempt(ctx, "verify", req.Email) {
		return model.LoginResponse{}, values.TooManyRequest, "too many verification attempts, please try again later", errors.New("verify rate limit exceeded")
	}

	userID, err := api.VerifyCodeRepo(ctx, req.Code, req.Type, req.Email)
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			return model.LoginResponse{}, values.NotAuthorised, "Invalid or expired verification code", err
		}
		return model.LoginResponse{}, values.Error, values.SystemErr, err
	}

	if req.Type == codeTypeRegister {
		if err := api.UpdateEmailVerifiedStatus(ctx, userID); err != nil {
			return model.LoginResponse{}, values.Error, "Failed to update email verification status", err
		}
	}

	user, err := api.GetUserByID(ctx, userID)
	if err != nil {
		return model.LoginResponse{}, values.Error, "Failed to retrieve user", err
	}

	loggedInUser, err := api.issueTokens(ctx, user)
	if err != nil {
		return model.LoginResponse{}, values.Error, fmt.Sprintf("%s [CrTk]", values.SystemErr), err
	}
	return loggedInUser, values.Success, "Verification successful", nil
}

func (api *API) ResendVerificationCode(ctx context.Context, req model.ResendCodeRequest) (string, string, error) {
	req.Email = strings.TrimSpace(req.Email)

	if err := util.ValidEmail(req.Email); err != nil {
		return values.BadRequestBody, "Invalid email address provided", err
	}

	if !api.allowAuthAttempt(ctx, "resend", req.Email) {
		return values.TooManyRequest, "too many code requests, please try again later", errors.New("resend rate limit exceeded")
	}

	user, err := api.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return values.NotFound, "User not found", err
		}
		return values.Error, values.SystemErr, err
	}

	codeType := codeTypeLogin
	if !user.IsVerified {
		codeType = codeTypeRegister
	}
	if err := api.sendCode(ctx, user, codeType); err != nil {
		return values.Error, "Failed to store verification code", err
	}

	return values.Success, "Verification code sent", nil
}

// RefreshSession rotates a refresh token. Revoking the old token and storing
// the new one share a transaction, so each refresh token works once and a
// failed rotation leaves the old one usable.
func (api *API) RefreshSession(ctx context.Context, req model.RefreshRequest) (model.LoginResponse, string, string, error) {
	if _, err := api.verifyToken(req.RefreshToken, true); err != nil {
		if errors.Is(err, errTokenExpired) {
			return model.LoginResponse{}, values.TokenExpired, "Refresh token expired", err
		}
		return model.LoginResponse{}, values.NotAuthorised, "Invalid refresh token", err
	}

	var resp model.LoginResponse
	err := api.Deps.DB.RunInTx(ctx, func(tx pgx.Tx) error {
		userID, err := consumeRefreshToken(ctx, tx, req.RefreshToken)
		if err != nil {
			return err
		}
		user, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
		if err != nil {
			return err
		}
		var refreshExp time.Time
		resp, refreshExp, err = api.newSession(user)
		if err != nil {
			return err
		}
		return storeRefreshToken(ctx, tx, userID, resp.RefreshToken, refreshExp)
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrRefreshTokenInvalid):
			return model.LoginResponse{}, values.NotAuthorised, "Invalid refresh token", err
		case errors.Is(err, ErrUserNotFound):
			return model.LoginResponse{}, values.NotAuthorised, "User not found", err
		}
		return model.LoginResponse{}, values.Error, fmt.Sprintf("%s [CrTk]", values.SystemErr), err
	}
	return resp, values.Success, "Token refreshed", nil
}

func (api *API) LogoutUser(ctx context.Context, req model.RefreshRequest) (string, string, error) {
	if err := api.RevokeRefreshToken(ctx, req.RefreshToken); err != nil {
		return values.Error, values.SystemErr, err
	}
	return values.Success, "Logged out", nil
}

// GoogleSignIn creates or logs in the account for a Google access token.
// With create set, an existing account is a conflict; without it, a missing
// account is not found.
func (api *API) GoogleSignIn(ctx context.Context, req model.GoogleTokenRequest, create bool) (model.LoginResponse, string, string, error) {
	if err := util.ValidateStruct(req); err != nil {
		return model.LoginResponse{}, values.BadRequestBody, util.ValidationMessage(err), err
	}

	info, err := fetchGoogleUser(ctx, api.googleOAuthConfig(), req.AccessToken)
	if err != nil {
		return model.LoginResponse{}, values.NotAuthorised, "failed to get user info", err
	}
	if info.Email == "" {
		return model.LoginResponse{}, values.NotAuthorised, "google account has no email", errors.New("empty google email")
	}

	user, err := api.GetUserByEmail(ctx, info.Email)
	switch {
	case err == nil && create:
		return model.LoginResponse{}, values.Conflict, "user already exists", errors.New("user already exists")
	case errors.Is(err, ErrUserNotFound) && !create:
		return model.LoginResponse{}, values.NotFound, "user does not exist", err
	case errors.Is(err, ErrUserNotFound):
		user = model.User{
			ID:           util.GenerateUUID(),
			Email:        info.Email,
			FirstName:    util.StringPtr(info.GivenName),
			LastName:     util.StringPtr(info.FamilyName),
			Role:         values.RoleCitizen,
			AuthProvider: "google",
			IsVerified:   info.VerifiedEmail,
		}
		if err := api.CreateNewUserRepo(ctx, user); err != nil {
			return model.LoginResponse{}, values.Error, "failed to create new user", err
		}
	case err != nil:
		return model.LoginResponse{}, values.Error, values.SystemErr, err
	}

	resp, err := api.issueTokens(ctx, user)
	if err != nil {
		return model.LoginResponse{}, values.Error, "failed to create token", err
	}
	if create {
		return resp, values.Created, "Account created successfully", nil
	}
	return resp, values.Success, "Login successful", nil
}
