package interceptor

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	apperrors "relay/pkg/errors"
	"relay/pkg/pipeline"
)

// Claims is the JWT claim set the runtime understands.
type Claims struct {
	UserID string   `json:"uid"`
	Email  string   `json:"email,omitempty"`
	Roles  []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Auth validates bearer tokens before the handler runs. A missing or invalid
// token short-circuits the request with an unauthorized error; on success
// the verified claims land in the request metadata for handlers and later
// interceptors.
type Auth struct {
	secret []byte
	issuer string
	skip   map[string]struct{}
	logger *zap.Logger
	parser *jwt.Parser
}

// NewAuth creates the auth interceptor. skipPaths are exact request paths
// (health checks and the like) that bypass authentication.
func NewAuth(secret, issuer string, logger *zap.Logger, skipPaths ...string) *Auth {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	return &Auth{
		secret: []byte(secret),
		issuer: issuer,
		skip:   skip,
		logger: logger,
		parser: jwt.NewParser(opts...),
	}
}

// Name implements pipeline.Interceptor.
func (a *Auth) Name() string { return "auth" }

// Before implements pipeline.BeforeHook.
func (a *Auth) Before(rc *pipeline.RequestContext) (*pipeline.Result, error) {
	if _, ok := a.skip[rc.Path]; ok {
		return nil, nil
	}

	token := extractBearer(rc.GetString(pipeline.MetaAuthorization))
	if token == "" {
		return nil, apperrors.NewUnauthorizedError("missing authentication token")
	}

	claims := &Claims{}
	if _, err := a.parser.ParseWithClaims(token, claims, a.keyFunc); err != nil {
		a.logger.Warn("token rejected",
			zap.String("request_id", rc.RequestID),
			zap.String("path", rc.Path),
			zap.Error(err),
		)
		return nil, apperrors.NewUnauthorizedError(rejectionMessage(err))
	}

	rc.SetUser(claims.UserID, claims.Roles)
	rc.Set(pipeline.MetaClaims, claims)
	return nil, nil
}

func (a *Auth) keyFunc(token *jwt.Token) (interface{}, error) {
	return a.secret, nil
}

// extractBearer pulls the token out of an Authorization header value. A bare
// token without the Bearer prefix is accepted too.
func extractBearer(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return header
}

func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "token has expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "invalid token signature"
	default:
		return "invalid token"
	}
}
