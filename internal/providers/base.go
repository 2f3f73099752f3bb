package providers

import (
	"context"
	"net/http"
	"time"
)

const defaultTimeout = 60 * time.Second

// BaseProvider holds the identity and HTTP client shared by the
// built-in provider shims.
type BaseProvider struct {
	id          string
	displayName string
	typ         string
	client      *http.Client
}

func NewBaseProvider(id, displayName, typ string, timeout time.Duration) *BaseProvider {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &BaseProvider{
		id:          id,
		displayName: displayName,
		typ:         typ,
		client:      &http.Client{Timeout: timeout},
	}
}

func (p *BaseProvider) ID() string {
	return p.id
}

func (p *BaseProvider) DisplayName() string {
	return p.displayName
}

func (p *BaseProvider) Type() string {
	return p.typ
}

// Shutdown closes idle upstream connections. The shims have no other
// teardown to do.
func (p *BaseProvider) Shutdown(ctx context.Context) error {
	p.client.CloseIdleConnections()
	return nil
}

func (p *BaseProvider) httpClient() *http.Client {
	return p.client
}
