package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ytget/ytdlp/v2"
	"go.uber.org/zap"
)

// Playlist URL constants
const (
	PlaylistParam           = "list="
	ParamSeparator          = "&"
	YouTubeVideoURLTemplate = "https://www.youtube.com/watch?v=%s"

	DefaultPlaylistTimeout = 60 * time.Second
)

// PlaylistEntry is one expanded video reference from a playlist
type PlaylistEntry struct {
	ID    string
	Title string
	URL   string
}

// Playlist holds an expanded playlist
type Playlist struct {
	ID      string
	URL     string
	Entries []PlaylistEntry
}

// PlaylistExpander turns a playlist URL into its individual video entries
type PlaylistExpander interface {
	Expand(ctx context.Context, url string) (*Playlist, error)
}

// PlaylistService expands playlists through the ytdlp client library
type PlaylistService struct {
	timeout time.Duration
	log     *zap.Logger
}

// NewPlaylistService creates a playlist expander
func NewPlaylistService(log *zap.Logger) *PlaylistService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PlaylistService{
		timeout: DefaultPlaylistTimeout,
		log:     log,
	}
}

// SetTimeout sets the timeout for expansion operations
func (p *PlaylistService) SetTimeout(timeout time.Duration) {
	p.timeout = timeout
}

// IsPlaylistURL reports whether the URL references a playlist
func IsPlaylistURL(url string) bool {
	return strings.Contains(url, PlaylistParam)
}

// Expand fetches all items of a playlist and returns them as video entries
func (p *PlaylistService) Expand(ctx context.Context, url string) (*Playlist, error) {
	playlistID := extractPlaylistID(url)
	if playlistID == "" {
		return nil, fmt.Errorf("could not extract playlist id from URL: %s", url)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	d := ytdlp.New()
	items, err := d.GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist items: %w", err)
	}

	entries := make([]PlaylistEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, PlaylistEntry{
			ID:    it.VideoID,
			Title: it.Title,
			URL:   fmt.Sprintf(YouTubeVideoURLTemplate, it.VideoID),
		})
	}

	p.log.Info("playlist expanded",
		zap.String("playlist_id", playlistID),
		zap.Int("entries", len(entries)))

	return &Playlist{
		ID:      playlistID,
		URL:     url,
		Entries: entries,
	}, nil
}

// extractPlaylistID pulls the playlist id out of the various URL shapes
func extractPlaylistID(url string) string {
	if !strings.Contains(url, PlaylistParam) {
		return ""
	}
	parts := strings.Split(url, PlaylistParam)
	if len(parts) < 2 {
		return ""
	}
	id := parts[1]
	if strings.Contains(id, ParamSeparator) {
		id = strings.Split(id, ParamSeparator)[0]
	}
	return id
}
