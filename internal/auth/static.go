package auth

import (
	"context"
	"strings"
)

// StaticVerifier trusts the token itself: `identity` or `identity:Display Name`.
// It is meant for local runs without an account service.
type StaticVerifier struct{}

func (StaticVerifier) Verify(_ context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrNoToken
	}
	id, name, _ := strings.Cut(token, ":")
	id = strings.TrimSpace(id)
	if id == "" {
		return Identity{}, ErrUnauthorized
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = id
	}
	return Identity{Identity: id, DisplayName: name}, nil
}
