package chat

import (
	"context"
	"time"

	"ChatRelay/global/config"
	"ChatRelay/logger"
	"ChatRelay/module/user/model"
)

// storeTimeout bounds the credential-store round trips made on behalf
// of a single connection event.
const storeTimeout = 5 * time.Second

// defaultAvatarURL is attached to delivered messages; avatars are not
// stored per account.
const defaultAvatarURL = "https://placeimg.com/140/140/any"

// UserStore is the slice of the credential store the gateway needs:
// account resolution plus best-effort upkeep of the persisted
// connection handle.
type UserStore interface {
	FindByID(ctx context.Context, userID string) (*model.User, error)
	BindConn(ctx context.Context, userID, connID string) error
	ClearConn(ctx context.Context, connID string) error
}

// TokenVerifier checks a bearer token and returns the identity it was
// issued for.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// Presence is the optional cross-process presence cache. All calls are
// best-effort; failures degrade to local-only visibility.
type Presence interface {
	Online(ctx context.Context, user, connID string) error
	Offline(ctx context.Context, user, connID string) error
}

// Gateway owns the connection lifecycle and message dispatch. It routes
// through the in-memory registry only; the persisted handle and the
// presence cache are write-through caches for other processes.
type Gateway struct {
	cfg      config.GatewayConfig
	registry *Registry
	store    UserStore
	tokens   TokenVerifier
	presence Presence // may be nil
	fanout   *Fanout
}

func NewGateway(cfg config.GatewayConfig, store UserStore, tokens TokenVerifier, presence Presence) *Gateway {
	return &Gateway{
		cfg:      cfg,
		registry: NewRegistry(),
		store:    store,
		tokens:   tokens,
		presence: presence,
		fanout:   NewFanout(4, 256),
	}
}

// Registry exposes the session registry, mainly for tests and
// diagnostics endpoints.
func (g *Gateway) Registry() *Registry {
	return g.registry
}

// persistHandle mirrors a fresh registration into the credential store
// and the presence cache. Failure only costs cross-process
// discoverability, never local delivery, so it is logged and ignored.
func (g *Gateway) persistHandle(client *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := g.store.BindConn(ctx, client.UserID, client.ConnID); err != nil {
		logger.Warnf("[WS] bind conn user=%s conn=%s err=%v", client.UserID, client.ConnID, err)
	}
	if g.presence != nil {
		if err := g.presence.Online(ctx, client.UserID, client.ConnID); err != nil {
			logger.Warnf("[WS] presence online user=%s err=%v", client.UserID, err)
		}
	}
}

// teardown runs exactly once per connection, after the read loop exits.
// The registry entry is removed by handle; the persisted handle and
// presence key are cleared best-effort.
func (g *Gateway) teardown(client *Client) {
	g.registry.Unregister(client.ConnID)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := g.store.ClearConn(ctx, client.ConnID); err != nil {
		logger.Warnf("[WS] clear conn user=%s conn=%s err=%v", client.UserID, client.ConnID, err)
	}
	if g.presence != nil {
		if err := g.presence.Offline(ctx, client.UserID, client.ConnID); err != nil {
			logger.Warnf("[WS] presence offline user=%s err=%v", client.UserID, err)
		}
	}

	client.CloseSend()
	logger.Infof("[WS] disconnected user=%s conn=%s online=%d", client.UserID, client.ConnID, g.registry.Len())
}

func (g *Gateway) sendError(c *Client, message string) {
	if !c.TrySend(EncodeError(message)) {
		logger.Warnf("[WS] error frame dropped, slow client user=%s conn=%s", c.UserID, c.ConnID)
	}
}
