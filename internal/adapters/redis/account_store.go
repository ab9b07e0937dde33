package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/helsevakt/vaksineportal/internal/domain/auth"
	"github.com/helsevakt/vaksineportal/internal/ports"
)

// AccountStore keeps the identity client's account cache as a JSON-encoded
// list per realm, preserving insertion order. The controller's default-pick
// policy depends on that order being stable.
type AccountStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ ports.AccountStore = (*AccountStore)(nil)

// NewAccountStore creates an account store. A zero ttl means entries do not
// expire (durable persistence); a positive ttl gives session-scoped
// semantics for volatile persistence policies.
func NewAccountStore(client redis.UniversalClient, ttl time.Duration) *AccountStore {
	return &AccountStore{client: client, prefix: "accounts:", ttl: ttl}
}

func (s *AccountStore) Append(ctx context.Context, realm string, a domainauth.Account) error {
	if realm == "" {
		return errors.New("realm cannot be empty")
	}
	if a.ID == "" {
		return errors.New("account ID cannot be empty")
	}

	accounts, err := s.List(ctx, realm)
	if err != nil {
		return err
	}
	for i, existing := range accounts {
		if existing.ID == a.ID {
			// Refresh in place so insertion order is preserved.
			accounts[i] = a
			return s.save(ctx, realm, accounts)
		}
	}
	return s.save(ctx, realm, append(accounts, a))
}

func (s *AccountStore) List(ctx context.Context, realm string) ([]domainauth.Account, error) {
	data, err := s.client.Get(ctx, s.prefix+realm).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var accounts []domainauth.Account
	if unmarshalErr := json.Unmarshal([]byte(data), &accounts); unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal accounts: %w", unmarshalErr)
	}
	return accounts, nil
}

func (s *AccountStore) Remove(ctx context.Context, realm, accountID string) error {
	accounts, err := s.List(ctx, realm)
	if err != nil {
		return err
	}
	kept := accounts[:0]
	for _, a := range accounts {
		if a.ID != accountID {
			kept = append(kept, a)
		}
	}
	if len(kept) == 0 {
		return s.Clear(ctx, realm)
	}
	return s.save(ctx, realm, kept)
}

func (s *AccountStore) Clear(ctx context.Context, realm string) error {
	return s.client.Del(ctx, s.prefix+realm).Err()
}

func (s *AccountStore) save(ctx context.Context, realm string, accounts []domainauth.Account) error {
	data, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("marshal accounts: %w", err)
	}
	return s.client.Set(ctx, s.prefix+realm, data, s.ttl).Err()
}
