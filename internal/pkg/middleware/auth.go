package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/token"
)

// ContextKey é o tipo das chaves de contexto deste pacote.
type ContextKey int

const (
	ActorClaimsKey ContextKey = iota
)

// ActorClaims são os dados do ator extraídos do token e anexados ao contexto.
type ActorClaims struct {
	ActorID string
	Role    domain.ActorRole
}

// TokenService define o contrato de validação necessário para o middleware.
type TokenService interface {
	ValidateToken(tokenString string) (*token.ActorClaims, error)
}

// writeError responde no mesmo formato dos handlers (domain.ErrorResponse).
func writeError(w http.ResponseWriter, err error) {
	status, category, message := apperror.MapToHTTPStatus(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(domain.ErrorResponse{Code: status, Category: category, Message: message})
}

// NewAuthMiddleware valida o Bearer token e anexa as claims do ator ao contexto.
func NewAuthMiddleware(tokenSvc TokenService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || tokenString == "" {
				writeError(w, apperror.NewUnauthorizedError("Token de autorização ausente ou malformado."))
				return
			}

			claims, err := tokenSvc.ValidateToken(tokenString)
			if err != nil {
				writeError(w, apperror.NewUnauthorizedError("Token inválido ou expirado."))
				return
			}

			ctx := WithActor(r.Context(), ActorClaims{
				ActorID: claims.ActorID(),
				Role:    domain.ActorRole(claims.Role),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithActor anexa as claims ao contexto (também usado por testes de handler).
func WithActor(ctx context.Context, claims ActorClaims) context.Context {
	return context.WithValue(ctx, ActorClaimsKey, claims)
}

// GetActorFromContext extrai as claims do ator no handler.
func GetActorFromContext(ctx context.Context) (ActorClaims, bool) {
	claims, ok := ctx.Value(ActorClaimsKey).(ActorClaims)
	return claims, ok
}

// RequireRoles permite a requisição apenas para atores com uma das roles listadas.
func RequireRoles(roles ...domain.ActorRole) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetActorFromContext(r.Context())
			if !ok {
				writeError(w, apperror.NewUnauthorizedError("Autorização necessária. Token não processado."))
				return
			}

			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, apperror.NewForbiddenError("Você não tem a permissão necessária."))
		})
	}
}
