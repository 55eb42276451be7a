package api

import "context"

// TokenSource supplies bearer tokens. Refresh is called once when the
// backend answers 401; the next Token call must return the new token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) error
}

// StaticToken is a TokenSource for a fixed token. An empty token sends no
// Authorization header.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

func (StaticToken) Refresh(context.Context) error {
	return ErrNoRefresh
}
