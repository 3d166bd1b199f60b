package session

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/ghalamif/VibraFlow/internal/adapters/poller"
	"github.com/ghalamif/VibraFlow/internal/adapters/stream"
	"github.com/ghalamif/VibraFlow/internal/app/config"
	"github.com/ghalamif/VibraFlow/internal/ports"
)

// SourceDeps carries optional transport overrides for NewSource.
type SourceDeps struct {
	HTTPClient *http.Client
	Dialer     *websocket.Dialer
}

// NewSource builds the acquisition strategy selected by cfg.Mode.
func NewSource(cfg *config.Config, obs ports.Observability, deps SourceDeps) (ports.Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	switch cfg.Mode {
	case config.ModePoll:
		return poller.New(cfg.Poll,
			poller.WithObservability(obs),
			poller.WithHTTPClient(deps.HTTPClient))
	case config.ModeStream:
		return stream.New(cfg.Stream,
			stream.WithObservability(obs),
			stream.WithDialer(deps.Dialer))
	default:
		return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
}
