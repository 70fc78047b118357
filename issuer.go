package adminauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kalenite/adminauth/token"
)

// issuePair mints an access/refresh pair bound to subject and records both
// in the token store with TTLs equal to their remaining lifetimes. The
// refresh expiry always exceeds the access expiry (enforced by the codec
// configuration).
func (s *Service) issuePair(ctx context.Context, subject string) (*TokenPair, error) {
	access, err := s.codec.IssueAccess(subject)
	if err != nil {
		return nil, err
	}
	refresh, err := s.codec.IssueRefresh(subject)
	if err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, token.KindAccess, subject, access.Value, access.ExpiresAt); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, token.KindRefresh, subject, refresh.Value, refresh.ExpiresAt); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access.Value,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshToken:     refresh.Value,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}

// Refresh renews a session. The refresh token's subject must match the
// principal already authenticated on the in-flight request, the subject
// must still exist and be enabled, and the refresh token's store record
// must still be live.
//
// A new access token is always minted. The refresh token is returned
// unchanged while its remaining lifetime exceeds the configured reuse
// window, otherwise a new one is minted alongside. By default the prior
// pair is not revoked and stays valid until its own TTL lapses; the
// RotateOnRefresh hardening option revokes it instead.
func (s *Service) Refresh(ctx context.Context, authenticated *Principal, currentAccess, refreshToken string) (*TokenPair, error) {
	if authenticated == nil {
		return nil, ErrUnauthorized
	}

	claims, err := s.codec.ParseKind(refreshToken, token.KindRefresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRefreshInvalid, err)
	}
	if claims.Subject != authenticated.ID {
		return nil, ErrRefreshInvalid
	}

	principal, err := s.identity.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !principal.Enabled {
		return nil, ErrAccountDisabled
	}

	live, err := s.store.Exists(ctx, token.KindRefresh, claims.Subject, refreshToken)
	if err != nil {
		return nil, err
	}
	if !live {
		return nil, ErrRefreshInvalid
	}

	access, err := s.codec.IssueAccess(claims.Subject)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, token.KindAccess, claims.Subject, access.Value, access.ExpiresAt); err != nil {
		return nil, err
	}

	pair := &TokenPair{
		AccessToken:      access.Value,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: claims.ExpiresAt.Time,
	}

	if time.Until(claims.ExpiresAt.Time) <= s.config.RefreshReuseWindow {
		fresh, err := s.codec.IssueRefresh(claims.Subject)
		if err != nil {
			return nil, err
		}
		if err := s.store.Save(ctx, token.KindRefresh, claims.Subject, fresh.Value, fresh.ExpiresAt); err != nil {
			return nil, err
		}
		pair.RefreshToken = fresh.Value
		pair.RefreshExpiresAt = fresh.ExpiresAt
	}

	if s.config.RotateOnRefresh {
		// Hardening option: invalidate the pair the caller presented.
		if err := s.store.Delete(ctx, token.KindAccess, claims.Subject, currentAccess); err != nil {
			return nil, err
		}
		if pair.RefreshToken != refreshToken {
			if err := s.store.Delete(ctx, token.KindRefresh, claims.Subject, refreshToken); err != nil {
				return nil, err
			}
		}
	}

	return pair, nil
}

// Logout revokes every live access and refresh token of the subject via
// prefix deletion. Tokens issued concurrently with the enumeration may
// survive; callers must not assume atomicity.
func (s *Service) Logout(ctx context.Context, subject string) error {
	_, err := s.store.RevokeSubject(ctx, subject)
	return err
}

// RevokeTokens bulk-deletes the subject's live tokens of one kind and
// returns the number removed. Used on password reset and account deletion.
func (s *Service) RevokeTokens(ctx context.Context, subject string, kind token.Kind) (int, error) {
	return s.store.RevokeAll(ctx, kind, subject)
}
