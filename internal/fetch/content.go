package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tidwall/gjson"

	"trawl/internal/config"
	"trawl/internal/logging"
	"trawl/internal/queue"
	"trawl/internal/services"
	"trawl/internal/stage"
)

// ContentHandler fetches a content item's page, extracts its item structure,
// and downloads either the video or the slide images plus audio track.
type ContentHandler struct {
	client            *Client
	urlTemplate       string
	scriptID          string
	path              string
	downloadBinaries  bool
	binaryConcurrency int
	logger            *slog.Logger
	now               func() time.Time
}

// NewContentHandler wires a content handler from configuration.
func NewContentHandler(cfg *config.Config, client *Client, logger *slog.Logger) *ContentHandler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ContentHandler{
		client:            client,
		urlTemplate:       cfg.HTTP.ContentURL,
		scriptID:          cfg.HTTP.DataScriptID,
		path:              cfg.HTTP.ContentPath,
		downloadBinaries:  cfg.Scrape.DownloadBinaries,
		binaryConcurrency: cfg.HTTP.BinaryConcurrency,
		logger:            logging.NewComponentLogger(logger, "content"),
		now:               time.Now,
	}
}

// Kind reports queue.KindContent.
func (h *ContentHandler) Kind() queue.Kind { return queue.KindContent }

// Fetch retrieves metadata and, when enabled, the binaries for item.
func (h *ContentHandler) Fetch(ctx context.Context, item *queue.Item) (*stage.Result, error) {
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

	result := &stage.Result{Record: stage.Record{
		ID:        item.ID,
		Kind:      queue.KindContent,
		FetchedAt: h.now().UTC(),
		Payload:   json.RawMessage(data.Raw),
	}}
	if !h.downloadBinaries {
		return result, nil
	}

	refs, err := contentBinaries(data)
	if err != nil {
		return nil, err
	}
	logging.WithContext(ctx, h.logger).Debug("downloading binaries",
		logging.Int("binary_count", len(refs)),
	)
	binaries, err := h.client.downloadAll(ctx, refs, h.binaryConcurrency)
	if err != nil {
		return nil, err
	}
	result.Binaries = binaries
	for _, bin := range binaries {
		result.Record.Files = append(result.Record.Files, bin.Name)
	}
	return result, nil
}

// contentBinaries lists what to download: slide images (plus the audio track)
// when the item is a slideshow, otherwise the video.
func contentBinaries(data gjson.Result) ([]binaryRef, error) {
	if post := data.Get("imagePost"); post.Exists() {
		images := post.Get("images")
		if !images.IsArray() || len(images.Array()) == 0 {
			return nil, services.Wrap(services.ErrNotFound, "fetch", "locate slides", "slideshow has no images", nil)
		}
		var refs []binaryRef
		for i, image := range images.Array() {
			imageURL := image.Get("imageURL.urlList.0").String()
			if imageURL == "" {
				return nil, services.Wrap(services.ErrStructural, "fetch", "locate slides", fmt.Sprintf("image %d has no url", i), nil)
			}
			refs = append(refs, binaryRef{name: fmt.Sprintf("picture_%d.jpeg", i), url: imageURL})
		}
		if audio := data.Get("music.playUrl").String(); audio != "" {
			refs = append(refs, binaryRef{name: "audio.mp3", url: audio})
		}
		return refs, nil
	}

	videoURL := data.Get("video.playAddr").String()
	if videoURL == "" {
		videoURL = data.Get("video.downloadAddr").String()
	}
	if videoURL == "" {
		return nil, services.Wrap(services.ErrNotFound, "fetch", "locate video", "item has neither video nor slides", nil)
	}
	return []binaryRef{{name: "video.mp4", url: videoURL}}, nil
}

// HealthCheck probes the content host.
func (h *ContentHandler) HealthCheck(ctx context.Context) stage.Health {
	return probeHealth(ctx, h.client, "content", h.urlTemplate)
}

func probeHealth(ctx context.Context, client *Client, name, template string) stage.Health {
	if template == "" {
		return stage.Unhealthy(name, "url template not configured")
	}
	target, err := probeTarget(template)
	if err != nil {
		return stage.Unhealthy(name, err.Error())
	}
	if err := client.Probe(ctx, target); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("%s unreachable: %v", target, err))
	}
	return stage.Healthy(name)
}
