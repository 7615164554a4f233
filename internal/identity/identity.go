// Package identity resolves the actor behind a request. Verification itself
// belongs to an external provider; this package only defines the narrow
// contract the pipeline consumes plus a static-table implementation for
// deployments that provision API tokens out of band.
package identity

import (
	"context"
	"strings"

	"github.com/itskum47/KMRL-DocAI/internal/domain"
)

// Verifier turns a bearer token into a verified actor.
type Verifier interface {
	Verify(ctx context.Context, token string) (domain.User, error)
}

// StaticVerifier maps pre-shared tokens to users. Token specs are parsed
// from configuration: "token=userID:role:department" entries.
type StaticVerifier struct {
	users map[string]domain.User
}

func NewStaticVerifier(tokenSpecs []string) *StaticVerifier {
	users := make(map[string]domain.User, len(tokenSpecs))
	for _, spec := range tokenSpecs {
		token, definition, ok := strings.Cut(strings.TrimSpace(spec), "=")
		if !ok || token == "" {
			continue
		}
		parts := strings.SplitN(definition, ":", 3)
		if len(parts) < 2 || parts[0] == "" {
			continue
		}
		user := domain.User{ID: parts[0], Role: domain.Role(parts[1])}
		if len(parts) == 3 {
			user.Department = parts[2]
		}
		users[token] = user
	}
	return &StaticVerifier{users: users}
}

func (v *StaticVerifier) Verify(_ context.Context, token string) (domain.User, error) {
	user, ok := v.users[token]
	if !ok {
		return domain.User{}, domain.ErrForbidden
	}
	return user, nil
}

// Size reports how many tokens are provisioned; main logs it at startup.
func (v *StaticVerifier) Size() int {
	return len(v.users)
}
