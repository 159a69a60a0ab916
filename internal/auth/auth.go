// Package auth bridges requests to the identity the separate login web app
// established. That app writes session→oid and user→oid mappings plus token
// material into the shared Redis; this service only reads them, except for
// the MSAL cache writeback after a silent refresh.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"
	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/confidential"

	"github.com/ntbworks/dockyard/internal/config"
	"github.com/ntbworks/dockyard/internal/kv"
)

var (
	// ErrUnauthenticated means no identity could be resolved from the session
	// cookie or the user-id fallback: the caller has not logged in upstream.
	ErrUnauthenticated = errors.New("auth: no identity found")
	// ErrCredentialUnobtainable means the identity is known but no usable
	// access token could be produced: the caller must re-authenticate.
	ErrCredentialUnobtainable = errors.New("auth: access token unobtainable")
)

const (
	tokenInfoPrefix = "token_info:"
	msalCachePrefix = "msal_cache:"

	userIDHeader = "X-User-ID"
	userIDCookie = "user_id"

	// TTL on the MSAL cache blob we write back after a refresh.
	msalCacheTTL = 8 * time.Hour
)

// Principal is what the middleware places in the request context.
type Principal struct {
	ObjectID    string
	AccessToken string
}

// silentClient is the slice of the MSAL confidential client the bridge uses.
type silentClient interface {
	Account(ctx context.Context, accountID string) (confidential.Account, error)
	AcquireTokenSilent(ctx context.Context, scopes []string, opts ...confidential.AcquireSilentOption) (confidential.AuthResult, error)
}

type Bridge struct {
	store          kv.Store
	cfg            config.AuthConfig
	acquireTimeout time.Duration

	// Swapped out in tests; the default builds a real confidential client
	// bound to the per-identity token cache.
	newClient func(tc cache.ExportReplace) (silentClient, error)
}

func New(store kv.Store, cfg config.AuthConfig) *Bridge {
	b := &Bridge{
		store:          store,
		cfg:            cfg,
		acquireTimeout: 15 * time.Second,
	}
	b.newClient = func(tc cache.ExportReplace) (silentClient, error) {
		cred, err := confidential.NewCredFromSecret(cfg.ClientSecret)
		if err != nil {
			return nil, fmt.Errorf("client credential: %w", err)
		}
		client, err := confidential.New(cfg.Authority, cfg.ClientID, cred, confidential.WithCache(tc))
		if err != nil {
			return nil, fmt.Errorf("confidential client: %w", err)
		}
		return client, nil
	}
	return b
}

// Identity resolves the request to the durable Microsoft object id. The
// session cookie is tried first; a hit short-circuits. Only when there is no
// session cookie, or its mapping is missing, does the X-User-ID header (or
// the user_id cookie) get a chance. A store error on one lookup degrades to
// the next step rather than failing the request, but is logged; if every
// lookup failed on the store the aggregate is logged as an outage so it is
// not mistaken for a plain unauthenticated request.
func (b *Bridge) Identity(r *http.Request) (string, error) {
	ctx := r.Context()
	lookups, storeErrs := 0, 0

	if c, err := r.Cookie(b.cfg.SessionCookie); err == nil && c.Value != "" {
		lookups++
		oid, err := b.lookupIdentity(ctx, b.cfg.SessionKeyPrefix+c.Value)
		if err == nil {
			return oid, nil
		}
		if !errors.Is(err, kv.ErrNotFound) {
			storeErrs++
			log.Printf("auth: session lookup: %v", err)
		}
	}

	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		if c, err := r.Cookie(userIDCookie); err == nil {
			userID = c.Value
		}
	}
	if userID != "" {
		lookups++
		oid, err := b.lookupIdentity(ctx, b.cfg.UserKeyPrefix+userID)
		if err == nil {
			return oid, nil
		}
		if !errors.Is(err, kv.ErrNotFound) {
			storeErrs++
			log.Printf("auth: user-id lookup: %v", err)
		}
	}

	if lookups > 0 && storeErrs == lookups {
		log.Printf("auth: shared store unreachable for all %d identity lookups", lookups)
	}
	return "", ErrUnauthenticated
}

func (b *Bridge) lookupIdentity(ctx context.Context, key string) (string, error) {
	blob, err := b.store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	oid := strings.TrimSpace(string(blob))
	if oid == "" {
		return "", kv.ErrNotFound
	}
	return oid, nil
}

type tokenInfo struct {
	AccessToken string `json:"access_token"`
}

// matchHomeAccountID scans the serialized MSAL cache for the account owned
// by oid. Home account ids are "<oid>.<tenant>", hence the prefix match. An
// unreadable blob or a miss returns "".
func matchHomeAccountID(blob []byte, oid string) string {
	var state struct {
		Account map[string]struct {
			HomeAccountID string `json:"home_account_id"`
		} `json:"Account"`
	}
	if err := json.Unmarshal(blob, &state); err != nil {
		return ""
	}
	for _, acc := range state.Account {
		if strings.HasPrefix(acc.HomeAccountID, oid) {
			return acc.HomeAccountID
		}
	}
	return ""
}

// AccessToken produces a Graph access token for the identity.
//
// The token_info record the login app stores is preferred: no network
// round-trip. Failing that, the serialized MSAL cache is loaded into a
// confidential client and a silent acquisition is attempted against the
// matching account; when the refresh mutates the cache, the client writes
// the new blob back through the cache hook with an 8 hour TTL. Any dead end
// on this path is ErrCredentialUnobtainable: the identity is known, but the
// caller must log in again.
func (b *Bridge) AccessToken(ctx context.Context, oid string) (string, error) {
	if blob, err := b.store.Get(ctx, tokenInfoPrefix+oid); err == nil {
		var info tokenInfo
		if jerr := json.Unmarshal(blob, &info); jerr == nil && info.AccessToken != "" {
			return info.AccessToken, nil
		}
	} else if !errors.Is(err, kv.ErrNotFound) {
		log.Printf("auth: token_info lookup for %s: %v", oid, err)
	}

	blob, err := b.store.Get(ctx, msalCachePrefix+oid)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			log.Printf("auth: msal cache lookup for %s: %v", oid, err)
		}
		return "", ErrCredentialUnobtainable
	}

	tc := &sharedTokenCache{
		store: b.store,
		key:   msalCachePrefix + oid,
		blob:  blob,
		ttl:   msalCacheTTL,
	}
	client, err := b.newClient(tc)
	if err != nil {
		return "", fmt.Errorf("msal client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.acquireTimeout)
	defer cancel()

	homeID := matchHomeAccountID(blob, oid)
	if homeID == "" {
		log.Printf("auth: no cached account for %s", oid)
		return "", ErrCredentialUnobtainable
	}
	account, err := client.Account(ctx, homeID)
	if err != nil {
		log.Printf("auth: resolve account %s: %v", homeID, err)
		return "", ErrCredentialUnobtainable
	}
	if account.HomeAccountID == "" {
		log.Printf("auth: no cached account for %s", oid)
		return "", ErrCredentialUnobtainable
	}

	result, err := client.AcquireTokenSilent(ctx, b.cfg.Scopes, confidential.WithSilentAccount(account))
	if err != nil {
		log.Printf("auth: silent acquisition for %s: %v", oid, err)
		return "", ErrCredentialUnobtainable
	}
	return result.AccessToken, nil
}
