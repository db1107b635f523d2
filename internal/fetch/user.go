package fetch

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"trawl/internal/config"
	"trawl/internal/logging"
	"trawl/internal/queue"
	"trawl/internal/stage"
)

// UserHandler fetches a user profile record. Users have no binaries.
type UserHandler struct {
	client      *Client
	urlTemplate string
	scriptID    string
	path        string
	logger      *slog.Logger
	now         func() time.Time
}

// NewUserHandler wires a user handler from configuration.
func NewUserHandler(cfg *config.Config, client *Client, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &UserHandler{
		client:      client,
		urlTemplate: cfg.HTTP.UserURL,
		scriptID:    cfg.HTTP.DataScriptID,
		path:        cfg.HTTP.UserPath,
		logger:      logging.NewComponentLogger(logger, "user"),
		now:         time.Now,
	}
}

// Kind reports queue.KindUser.
func (h *UserHandler) Kind() queue.Kind { return queue.KindUser }

// Fetch retrieves the profile for item.
func (h *UserHandler) Fetch(ctx context.Context, item *queue.Item) (*stage.Result, error) {
	pageURL, err := ExpandTemplate(h.urlTemplate, item.ID)
	if err != nil {
		return nil, err
	}
	page, err := h.client.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	data, err := ExtractEmbedded(page, h.scriptID, h.path)
	if err != nil {
		return nil, err
	}
	return &stage.Result{Record: stage.Record{
		ID:        item.ID,
		Kind:      queue.KindUser,
		FetchedAt: h.now().UTC(),
		Payload:   json.RawMessage(data.Raw),
	}}, nil
}

// HealthCheck probes the user host.
func (h *UserHandler) HealthCheck(ctx context.Context) stage.Health {
	return probeHealth(ctx, h.client, "user", h.urlTemplate)
}
