package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/DeBrosOfficial/wavechat/pkg/errors"
	"github.com/DeBrosOfficial/wavechat/pkg/keystore"
	"github.com/DeBrosOfficial/wavechat/pkg/logging"
	"github.com/DeBrosOfficial/wavechat/pkg/storage"
)

// RegisterProfile creates or replaces the caller's profile. CreatedAt is kept
// from an existing record; UpdatedAt always moves to now.
func (l *Ledger) RegisterProfile(ctx context.Context, caller string, in ProfileInput) (p *Profile, err error) {
	defer func(start time.Time) { l.observe(ctx, "register_profile", start, err) }(time.Now())

	if err := checkIdentifier("caller", caller); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Username) == "" {
		return nil, apperrors.NewValidationError("username", "username is required", in.Username)
	}
	if strings.TrimSpace(in.EncryptionKey) == "" {
		return nil, apperrors.NewValidationError("encryptionKey", "encryption key is required", nil)
	}
	if _, err := keystore.ParsePublicKey(in.EncryptionKey); err != nil {
		return nil, apperrors.NewValidationError("encryptionKey", err.Error(), nil)
	}

	unlock := l.locks.lock(profileKey(caller))
	defer unlock()

	existing, err := l.tryReadProfile(ctx, caller)
	if err != nil {
		return nil, err
	}

	now := l.nowMillis()
	p = &Profile{
		Address:       caller,
		Username:      in.Username,
		AvatarRef:     in.AvatarRef,
		Bio:           in.Bio,
		EncryptionKey: in.EncryptionKey,
		Status:        in.Status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if existing != nil {
		p.CreatedAt = existing.CreatedAt
	}

	if err := l.store.Set(ctx, profileKey(caller), encodeProfile(p)); err != nil {
		return nil, fmt.Errorf("failed to store profile: %w", err)
	}

	l.logger.ComponentDebug(logging.ComponentLedger, "Profile registered",
		zap.String("address", caller), zap.Bool("update", existing != nil))
	l.events.Publish(ctx, profileEvent(caller, l.now()))
	return p, nil
}

// GetProfile returns the profile of address, or the caller's when address is
// empty. A never-registered address yields (nil, nil).
func (l *Ledger) GetProfile(ctx context.Context, caller, address string) (p *Profile, err error) {
	defer func(start time.Time) { l.observe(ctx, "get_profile", start, err) }(time.Now())

	target := address
	if target == "" {
		target = caller
	}
	if err := checkIdentifier("address", target); err != nil {
		return nil, err
	}
	return l.tryReadProfile(ctx, target)
}

func (l *Ledger) tryReadProfile(ctx context.Context, address string) (*Profile, error) {
	key := profileKey(address)
	data, err := l.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return decodeProfile(key, data)
}
