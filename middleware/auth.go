package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"societyAdminAPI/internal/apperr"
	"societyAdminAPI/internal/audit"
	"societyAdminAPI/internal/gateway"
)

type contextKey string

const OperatorIDKey contextKey = "operatorID"

// TokenVerifier checks a bearer ID token and returns the user id it names.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// FirebaseVerifier verifies Firebase Auth ID tokens.
type FirebaseVerifier struct {
	client *auth.Client
}

func NewFirebaseVerifier(client *auth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (string, error) {
	t, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", err
	}
	return t.UID, nil
}

// ClerkVerifier verifies Clerk session JWTs.
type ClerkVerifier struct{}

func NewClerkVerifier(secretKey string) *ClerkVerifier {
	clerk.SetKey(secretKey)
	return &ClerkVerifier{}
}

func (ClerkVerifier) Verify(ctx context.Context, token string) (string, error) {
	claims, err := jwt.Verify(ctx, &jwt.VerifyParams{
		Token: token,
	})
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// OperatorChecker decides whether a verified user may use the console.
type OperatorChecker interface {
	IsSuperAdmin(ctx context.Context, uid string) (bool, error)
}

type Auth struct {
	verifier  TokenVerifier
	operators OperatorChecker
	logger    *zap.Logger
}

func NewAuth(verifier TokenVerifier, operators OperatorChecker, logger *zap.Logger) *Auth {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auth{verifier: verifier, operators: operators, logger: logger}
}

// SuperAdmin admits only requests carrying a valid token of an active
// super-admin. The operator id and token travel on in the request context.
func (a *Auth) SuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" && websocket.IsWebSocketUpgrade(r) {
			// browsers cannot set headers on a websocket handshake
			if t := r.URL.Query().Get("token"); t != "" {
				authHeader = "Bearer " + t
			}
		}
		if authHeader == "" {
			respondWithError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader || token == "" {
			respondWithError(w, http.StatusUnauthorized, "Invalid authorization format. Use 'Bearer <token>'")
			return
		}

		uid, err := a.verifier.Verify(r.Context(), token)
		if err != nil {
			a.logger.Info("token verification failed", zap.Error(err))
			respondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ok, err := a.operators.IsSuperAdmin(r.Context(), uid)
		if err != nil {
			a.logger.Error("operator lookup failed", zap.String("uid", uid), zap.Error(err))
			respondWithError(w, apperr.HTTPStatus(err), "Could not verify operator")
			return
		}
		if !ok {
			a.logger.Warn("non super-admin rejected", zap.String("uid", uid))
			respondWithError(w, http.StatusForbidden, "Super admin access required")
			return
		}

		ctx := context.WithValue(r.Context(), OperatorIDKey, uid)
		ctx = audit.WithActor(ctx, uid)
		ctx = gateway.WithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetOperatorID extracts the authenticated operator id from context.
func GetOperatorID(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(OperatorIDKey).(string)
	return uid, ok
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
