package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/ppalone/ytsearch"
	"github.com/sglre6355/tunebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/music_player/domain"
)

// restrictedMarkers are lowercase fragments of provider errors meaning the
// media exists but cannot be played.
var restrictedMarkers = []string{
	"private",
	"sign in",
	"unavailable",
	"copyright",
	"drm",
}

// notFoundMarkers are lowercase fragments of yt-dlp errors meaning nothing
// matched the reference.
var notFoundMarkers = []string{
	"no video results",
	"unable to find",
	"does not exist",
	"404",
}

const ytdlpPrintTemplate = "%(_type)s\t%(id)s\t%(title)s\t%(duration)s\t%(webpage_url)s\t%(url)s"

// Verify YtdlpProvider implements the interface.
var _ ports.MediaProvider = (*YtdlpProvider)(nil)

// ytdlpRunner runs yt-dlp for a single reference and returns its output.
type ytdlpRunner func(ctx context.Context, reference string) (stdout, stderr string, err error)

// firstResultFunc returns the watch URL of the first search hit.
type firstResultFunc func(ctx context.Context, query string) (string, error)

// YtdlpProvider resolves references with the yt-dlp binary. Search terms are
// looked up through YouTube search first and fall back to yt-dlp's own
// search extractor.
type YtdlpProvider struct {
	run         ytdlpRunner
	firstResult firstResultFunc
}

// NewYtdlpProvider creates a new YtdlpProvider.
func NewYtdlpProvider() *YtdlpProvider {
	client := ytsearch.NewClient(nil)
	return &YtdlpProvider{
		run: runYtdlp,
		firstResult: func(ctx context.Context, query string) (string, error) {
			res, err := client.Search(ctx, query)
			if err != nil {
				return "", err
			}
			for _, r := range res.Results {
				if r.VideoID != "" {
					return youtubeWatchURL + r.VideoID, nil
				}
			}
			return "", ports.ErrMediaNotFound
		},
	}
}

// Lookup implements ports.MediaProvider.
func (p *YtdlpProvider) Lookup(ctx context.Context, reference string) (*ports.MediaInfo, error) {
	ref := domain.NewReference(reference)
	target := ref.Raw

	if !ref.IsURL {
		url, err := p.firstResult(ctx, ref.Raw)
		switch {
		case errors.Is(err, ports.ErrMediaNotFound):
			return nil, err
		case err != nil:
			slog.Debug("youtube search failed, falling back to yt-dlp search",
				"query", ref.Raw,
				"error", err,
			)
			target = "ytsearch1:" + ref.Raw
		default:
			target = url
		}
	}

	stdout, stderr, err := p.run(ctx, target)
	if err != nil {
		return nil, classifyYtdlpError(stderr, err)
	}
	return parseYtdlpOutput(stdout)
}

func runYtdlp(ctx context.Context, reference string) (string, string, error) {
	res, err := ytdlp.New().
		NoPlaylist().
		Format("bestaudio/best").
		Print(ytdlpPrintTemplate).
		NoWarnings().
		IgnoreConfig().
		Run(ctx, "--skip-download", reference)
	if res == nil {
		return "", "", err
	}
	return res.Stdout, res.Stderr, err
}

// classifyYtdlpError maps yt-dlp's stderr onto the provider errors.
func classifyYtdlpError(stderr string, err error) error {
	lower := strings.ToLower(stderr)
	for _, marker := range restrictedMarkers {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("%w: %s", ports.ErrMediaRestricted, firstLine(stderr))
		}
	}
	for _, marker := range notFoundMarkers {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("%w: %s", ports.ErrMediaNotFound, firstLine(stderr))
		}
	}
	return fmt.Errorf("yt-dlp failed: %w", err)
}

// parseYtdlpOutput reads the first complete line printed with
// ytdlpPrintTemplate.
func parseYtdlpOutput(stdout string) (*ports.MediaInfo, error) {
	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		parts := strings.Split(line, "\t")
		if len(parts) < 6 {
			continue
		}
		if parts[0] == "playlist" {
			return nil, ports.ErrPlaylistReference
		}

		info := &ports.MediaInfo{
			ID:         naToEmpty(parts[1]),
			Title:      naToEmpty(parts[2]),
			WebpageURL: naToEmpty(parts[4]),
			StreamURL:  naToEmpty(parts[5]),
		}
		if d, err := time.ParseDuration(parts[3] + "s"); err == nil && d > 0 {
			info.Duration = d.Truncate(time.Second)
		}
		if info.Title == "" {
			info.Title = "Unknown title"
		}
		return info, nil
	}
	return nil, ports.ErrMediaNotFound
}

// naToEmpty maps yt-dlp's placeholder for missing fields to "".
func naToEmpty(s string) string {
	s = strings.TrimSpace(s)
	if s == "NA" {
		return ""
	}
	return s
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
