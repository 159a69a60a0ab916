package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"
	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/confidential"
	"github.com/stretchr/testify/require"

	"github.com/ntbworks/dockyard/internal/config"
	"github.com/ntbworks/dockyard/internal/kv"
)

type fakeStore struct {
	mu   sync.Mutex
	data map[string][]byte
	// Per-key Get error injection and call counts.
	errs map[string]error
	gets map[string]int
	ttls map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		data: map[string][]byte{},
		errs: map[string]error{},
		gets: map[string]int{},
		ttls: map[string]time.Duration{},
	}
}

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets[key]++
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	v, ok := f.data[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	return v, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func testConfig() config.AuthConfig {
	return config.AuthConfig{
		ClientID:         "client",
		ClientSecret:     "secret",
		Authority:        "https://login.microsoftonline.com/tenant",
		Scopes:           []string{"https://graph.microsoft.com/.default"},
		SessionCookie:    "session",
		SessionKeyPrefix: "shared:ms_oid_by_session:",
		UserKeyPrefix:    "shared:ms_oid_by_user:",
	}
}

func TestIdentitySessionCookie(t *testing.T) {
	store := newFakeStore()
	store.data["shared:ms_oid_by_session:cookie123"] = []byte("oid-123")
	b := New(store, testConfig())

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Cookie", "session=cookie123")
	r.Header.Set("X-User-ID", "42")

	oid, err := b.Identity(r)
	require.NoError(t, err)
	require.Equal(t, "oid-123", oid)
	// A session hit never consults the user-id fallback.
	require.Zero(t, store.gets["shared:ms_oid_by_user:42"])
}

func TestIdentityHeaderFallback(t *testing.T) {
	store := newFakeStore()
	store.data["shared:ms_oid_by_user:42"] = []byte("oid-42")
	b := New(store, testConfig())

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-User-ID", "42")

	oid, err := b.Identity(r)
	require.NoError(t, err)
	require.Equal(t, "oid-42", oid)
}

func TestIdentityUserCookieFallback(t *testing.T) {
	store := newFakeStore()
	store.data["shared:ms_oid_by_user:7"] = []byte("oid-7")
	b := New(store, testConfig())

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Cookie", "user_id=7")

	oid, err := b.Identity(r)
	require.NoError(t, err)
	require.Equal(t, "oid-7", oid)
}

func TestIdentityHeaderBeatsCookie(t *testing.T) {
	store := newFakeStore()
	store.data["shared:ms_oid_by_user:1"] = []byte("oid-header")
	store.data["shared:ms_oid_by_user:2"] = []byte("oid-cookie")
	b := New(store, testConfig())

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-User-ID", "1")
	r.Header.Set("Cookie", "user_id=2")

	oid, err := b.Identity(r)
	require.NoError(t, err)
	require.Equal(t, "oid-header", oid)
}

func TestIdentityUnknown(t *testing.T) {
	store := newFakeStore()
	b := New(store, testConfig())

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-User-ID", "42")

	_, err := b.Identity(r)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestIdentityNoCredentialsAtAll(t *testing.T) {
	store := newFakeStore()
	b := New(store, testConfig())

	_, err := b.Identity(httptest.NewRequest("GET", "/", nil))
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestIdentityStoreErrorDegradesToFallback(t *testing.T) {
	store := newFakeStore()
	store.errs["shared:ms_oid_by_session:cookie123"] = errors.New("connection refused")
	store.data["shared:ms_oid_by_user:42"] = []byte("oid-42")
	b := New(store, testConfig())

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Cookie", "session=cookie123")
	r.Header.Set("X-User-ID", "42")

	oid, err := b.Identity(r)
	require.NoError(t, err)
	require.Equal(t, "oid-42", oid)
}

type stubClient struct {
	result      confidential.AuthResult
	err         error
	accountErr  error
	silentCalls int
	accountIDs  []string

	// When set, a silent acquisition pushes this blob through the token
	// cache hook the way a real refresh does.
	tc        cache.ExportReplace
	writeback []byte
}

func (s *stubClient) Account(_ context.Context, accountID string) (confidential.Account, error) {
	s.accountIDs = append(s.accountIDs, accountID)
	if s.accountErr != nil {
		return confidential.Account{}, s.accountErr
	}
	return confidential.Account{HomeAccountID: accountID}, nil
}

func (s *stubClient) AcquireTokenSilent(ctx context.Context, _ []string, _ ...confidential.AcquireSilentOption) (confidential.AuthResult, error) {
	s.silentCalls++
	if s.writeback != nil && s.tc != nil {
		if err := s.tc.Export(ctx, staticMarshaler(s.writeback), cache.ExportHints{}); err != nil {
			return confidential.AuthResult{}, err
		}
	}
	return s.result, s.err
}

// A serialized MSAL cache holding a single account, keyed the way MSAL keys
// its Account section.
func cacheBlobWithAccounts(homeIDs ...string) []byte {
	accounts := map[string]map[string]string{}
	for _, id := range homeIDs {
		accounts[id+"-login.microsoftonline.com-tenant"] = map[string]string{"home_account_id": id}
	}
	blob, _ := json.Marshal(map[string]any{"AccessToken": map[string]any{}, "Account": accounts})
	return blob
}

func TestAccessTokenFastPath(t *testing.T) {
	store := newFakeStore()
	store.data["token_info:oid-1"] = []byte(`{"access_token":"T1"}`)
	b := New(store, testConfig())
	b.newClient = func(cache.ExportReplace) (silentClient, error) {
		t.Fatal("token_info hit must not build an msal client")
		return nil, nil
	}

	token, err := b.AccessToken(context.Background(), "oid-1")
	require.NoError(t, err)
	require.Equal(t, "T1", token)
}

func TestAccessTokenNoState(t *testing.T) {
	store := newFakeStore()
	b := New(store, testConfig())

	_, err := b.AccessToken(context.Background(), "oid-1")
	require.ErrorIs(t, err, ErrCredentialUnobtainable)
}

func TestAccessTokenSilentRefresh(t *testing.T) {
	store := newFakeStore()
	store.data["msal_cache:oid-1"] = cacheBlobWithAccounts("other-oid.tenant", "oid-1.tenant")
	b := New(store, testConfig())

	stub := &stubClient{}
	stub.result.AccessToken = "fresh-token"
	b.newClient = func(cache.ExportReplace) (silentClient, error) { return stub, nil }

	token, err := b.AccessToken(context.Background(), "oid-1")
	require.NoError(t, err)
	require.Equal(t, "fresh-token", token)
	require.Equal(t, 1, stub.silentCalls)
	// Only the matching home account id is ever resolved.
	require.Equal(t, []string{"oid-1.tenant"}, stub.accountIDs)
}

func TestAccessTokenNoMatchingAccount(t *testing.T) {
	store := newFakeStore()
	store.data["msal_cache:oid-1"] = cacheBlobWithAccounts("someone-else.tenant")
	b := New(store, testConfig())

	stub := &stubClient{}
	b.newClient = func(cache.ExportReplace) (silentClient, error) { return stub, nil }

	_, err := b.AccessToken(context.Background(), "oid-1")
	require.ErrorIs(t, err, ErrCredentialUnobtainable)
	require.Zero(t, stub.silentCalls)
	require.Empty(t, stub.accountIDs)
}

func TestAccessTokenAccountResolutionFailure(t *testing.T) {
	store := newFakeStore()
	store.data["msal_cache:oid-1"] = cacheBlobWithAccounts("oid-1.tenant")
	b := New(store, testConfig())

	stub := &stubClient{accountErr: errors.New("cache deserialization failed")}
	b.newClient = func(cache.ExportReplace) (silentClient, error) { return stub, nil }

	_, err := b.AccessToken(context.Background(), "oid-1")
	require.ErrorIs(t, err, ErrCredentialUnobtainable)
	require.Zero(t, stub.silentCalls)
}

func TestAccessTokenSilentFailure(t *testing.T) {
	store := newFakeStore()
	store.data["msal_cache:oid-1"] = cacheBlobWithAccounts("oid-1.tenant")
	b := New(store, testConfig())

	stub := &stubClient{err: errors.New("AADSTS700082: refresh token expired")}
	b.newClient = func(cache.ExportReplace) (silentClient, error) { return stub, nil }

	_, err := b.AccessToken(context.Background(), "oid-1")
	require.ErrorIs(t, err, ErrCredentialUnobtainable)
}

func TestAccessTokenMalformedTokenInfoFallsThrough(t *testing.T) {
	store := newFakeStore()
	store.data["token_info:oid-1"] = []byte("not json")
	store.data["msal_cache:oid-1"] = cacheBlobWithAccounts("oid-1.tenant")
	b := New(store, testConfig())

	stub := &stubClient{}
	stub.result.AccessToken = "from-msal"
	b.newClient = func(cache.ExportReplace) (silentClient, error) { return stub, nil }

	token, err := b.AccessToken(context.Background(), "oid-1")
	require.NoError(t, err)
	require.Equal(t, "from-msal", token)
}

func TestAccessTokenRefreshWritesCacheBack(t *testing.T) {
	store := newFakeStore()
	store.data["msal_cache:oid-1"] = cacheBlobWithAccounts("oid-1.tenant")
	b := New(store, testConfig())

	stub := &stubClient{writeback: []byte(`{"refreshed":true}`)}
	stub.result.AccessToken = "fresh-token"
	b.newClient = func(tc cache.ExportReplace) (silentClient, error) {
		stub.tc = tc
		return stub, nil
	}

	token, err := b.AccessToken(context.Background(), "oid-1")
	require.NoError(t, err)
	require.Equal(t, "fresh-token", token)
	require.Equal(t, []byte(`{"refreshed":true}`), store.data["msal_cache:oid-1"])
	require.Equal(t, 8*time.Hour, store.ttls["msal_cache:oid-1"])
}

func TestMatchHomeAccountID(t *testing.T) {
	blob := cacheBlobWithAccounts("other-oid.tenant", "oid-1.tenant")
	require.Equal(t, "oid-1.tenant", matchHomeAccountID(blob, "oid-1"))
	require.Equal(t, "", matchHomeAccountID(blob, "oid-2"))
	require.Equal(t, "", matchHomeAccountID([]byte("not json"), "oid-1"))
	require.Equal(t, "", matchHomeAccountID([]byte(`{"AccessToken":{}}`), "oid-1"))
}

type staticMarshaler []byte

func (m staticMarshaler) Marshal() ([]byte, error) { return m, nil }

type captureUnmarshaler struct{ got []byte }

func (u *captureUnmarshaler) Unmarshal(b []byte) error {
	u.got = append([]byte(nil), b...)
	return nil
}

func TestSharedTokenCacheRoundTrip(t *testing.T) {
	store := newFakeStore()
	tc := &sharedTokenCache{
		store: store,
		key:   "msal_cache:oid-1",
		blob:  []byte(`{"cached":true}`),
		ttl:   msalCacheTTL,
	}

	var u captureUnmarshaler
	require.NoError(t, tc.Replace(context.Background(), &u, cache.ReplaceHints{}))
	require.Equal(t, []byte(`{"cached":true}`), u.got)

	require.NoError(t, tc.Export(context.Background(), staticMarshaler(`{"refreshed":true}`), cache.ExportHints{}))
	require.Equal(t, []byte(`{"refreshed":true}`), store.data["msal_cache:oid-1"])
	require.Equal(t, 8*time.Hour, store.ttls["msal_cache:oid-1"])
}
