package api

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ytget/fetchmux/internal/config"
	"github.com/ytget/fetchmux/internal/extract"
	"github.com/ytget/fetchmux/internal/format"
	"github.com/ytget/fetchmux/internal/model"
	"github.com/ytget/fetchmux/internal/queue"
)

// MediumPresetHeight is the height ceiling applied by the medium preset
const MediumPresetHeight = 720

// Service runs the submission pipeline: probe the URL, classify and select a
// format, and hand the resolved request to the queue.
type Service struct {
	prober    extract.Prober
	playlists extract.PlaylistExpander
	manager   *queue.Manager
	preset    config.QualityPreset
	log       *zap.Logger
}

// NewService creates the submission service. A nil logger disables logging.
func NewService(prober extract.Prober, playlists extract.PlaylistExpander, manager *queue.Manager, preset config.QualityPreset, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		prober:    prober,
		playlists: playlists,
		manager:   manager,
		preset:    preset,
		log:       log,
	}
}

// Submit admits one media URL, or every entry of a playlist URL. Playlist
// entries that fail to resolve are reported individually; the submission
// fails outright only when nothing could be admitted.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (SubmitResponse, error) {
	if req.URL == "" {
		return SubmitResponse{}, fmt.Errorf("%w: empty url", format.ErrInvalidRequest)
	}

	dlReq, err := s.buildDownloadRequest(req)
	if err != nil {
		return SubmitResponse{}, err
	}

	if extract.IsPlaylistURL(req.URL) && s.playlists != nil {
		return s.submitPlaylist(ctx, req.URL, dlReq)
	}

	id, err := s.admitOne(ctx, req.URL, dlReq)
	if err != nil {
		return SubmitResponse{}, err
	}
	return SubmitResponse{JobIDs: []string{id}}, nil
}

func (s *Service) submitPlaylist(ctx context.Context, url string, dlReq *model.DownloadRequest) (SubmitResponse, error) {
	playlist, err := s.playlists.Expand(ctx, url)
	if err != nil {
		return SubmitResponse{}, err
	}

	var resp SubmitResponse
	for _, entry := range playlist.Entries {
		id, err := s.admitOne(ctx, entry.URL, dlReq)
		if err != nil {
			s.log.Warn("playlist entry skipped",
				zap.String("url", entry.URL),
				zap.Error(err))
			resp.Errors = append(resp.Errors, EntryError{URL: entry.URL, Error: err.Error()})
			continue
		}
		resp.JobIDs = append(resp.JobIDs, id)
	}

	if len(resp.JobIDs) == 0 && len(resp.Errors) > 0 {
		return resp, errors.New("no playlist entry could be admitted")
	}
	return resp, nil
}

// admitOne probes a single URL and enqueues the resolved request
func (s *Service) admitOne(ctx context.Context, url string, dlReq *model.DownloadRequest) (string, error) {
	info, err := s.prober.Probe(ctx, url)
	if err != nil {
		return "", err
	}

	req := *dlReq
	if req.Kind == model.KindImage {
		req.ThumbnailURL = info.ThumbnailURL
	}

	set := format.Classify(info.Formats)
	resolved, err := format.Select(set, &req)
	if err != nil {
		return "", err
	}
	resolved.Title = info.Title
	resolved.Duration = info.Duration

	return s.manager.Enqueue(resolved), nil
}

// buildDownloadRequest maps the wire request onto the selector's input,
// filling gaps from the configured quality preset.
func (s *Service) buildDownloadRequest(req SubmitRequest) (*model.DownloadRequest, error) {
	kind := model.RequestKind(req.Kind)
	if req.Kind == "" {
		kind = model.KindCombined
		if s.preset == config.QualityAudio {
			kind = model.KindAudioOnly
		}
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", format.ErrInvalidRequest, req.Kind)
	}

	dlReq := &model.DownloadRequest{
		Kind:            kind,
		FormatID:        req.FormatID,
		VideoFormatID:   req.VideoFormatID,
		AudioFormatID:   req.AudioFormatID,
		TargetContainer: req.Container,
	}

	if !dlReq.Explicit() {
		filter := &model.QualityFilter{
			MaxHeight: req.MaxHeight,
			AudioTier: model.AudioTier(req.AudioTier),
		}
		if filter.MaxHeight == 0 && s.preset == config.QualityMedium {
			filter.MaxHeight = MediumPresetHeight
		}
		if filter.MaxHeight > 0 || filter.AudioTier != "" {
			dlReq.Filter = filter
		}
	}

	return dlReq, nil
}
