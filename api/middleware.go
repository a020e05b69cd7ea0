package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/fitmirrorlabs/fitmirror-backend/utils"
)

type contextKey string

const userIDKey contextKey = "user_id"

// AuthMiddleware validates the Bearer token and stores the user ID in the
// request context.
func AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			utils.RespondError(w, nil, "Missing or malformed Authorization header", http.StatusUnauthorized)
			return
		}

		userID, err := utils.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			utils.RespondError(w, nil, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next(w, r.WithContext(ctx))
	}
}

// GetUserIDFromContext returns the authenticated user's ID.
func GetUserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("no user in context")
	}
	return userID, nil
}
