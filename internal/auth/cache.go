package auth

import (
	"context"
	"log"
	"time"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"

	"github.com/ntbworks/dockyard/internal/kv"
)

// sharedTokenCache binds one identity's MSAL cache blob to its key in the
// shared store. The blob is fetched before the client is built, so Replace
// serves from memory; Export runs only when the client mutated the cache
// (a refresh happened) and performs the writeback. A failed writeback is
// logged and dropped: the next refresh writes again, and two refreshes
// racing end as last-writer-wins on the key.
type sharedTokenCache struct {
	store kv.Store
	key   string
	blob  []byte
	ttl   time.Duration
}

func (c *sharedTokenCache) Replace(_ context.Context, u cache.Unmarshaler, _ cache.ReplaceHints) error {
	if len(c.blob) == 0 {
		return nil
	}
	return u.Unmarshal(c.blob)
}

func (c *sharedTokenCache) Export(ctx context.Context, m cache.Marshaler, _ cache.ExportHints) error {
	blob, err := m.Marshal()
	if err != nil {
		return err
	}
	c.blob = blob
	if err := c.store.Set(ctx, c.key, blob, c.ttl); err != nil {
		log.Printf("auth: msal cache writeback %s: %v", c.key, err)
	}
	return nil
}
