package gateway

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	assetx "github.com/tanpawarit/sparkpath-gateway/agent/asset"
	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
	statex "github.com/tanpawarit/sparkpath-gateway/agent/state"
	"github.com/tanpawarit/sparkpath-gateway/pkg/retry"
)

// SaveAsset uploads blob and returns its reference once the object store acknowledged
// the write.
func (s *Service) SaveAsset(
	ctx context.Context,
	blob []byte,
	sessionID string,
	kind contractx.AssetKind,
	mimeType string,
) (ref contractx.AssetReference, err error) {
	ctx, done := s.begin(ctx, "save_asset", sessionID)
	defer func() { err = done(err, contractx.ErrStorageWriteFailed) }()

	sessionID = strings.TrimSpace(sessionID)
	if err := statex.ValidateSessionID(sessionID); err != nil {
		return contractx.AssetReference{}, fmt.Errorf("%w: %w", contractx.ErrStorageWriteFailed, err)
	}
	if !kind.Valid() {
		return contractx.AssetReference{}, fmt.Errorf("%w: unknown asset kind %q", contractx.ErrStorageWriteFailed, kind)
	}
	if len(blob) == 0 {
		return contractx.AssetReference{}, fmt.Errorf("%w: blob is empty", contractx.ErrStorageWriteFailed)
	}
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	key := assetx.BuildKey(s.cfg.AssetPrefix, sessionID, kind, mimeType)
	url, err := s.assets.Put(ctx, key, blob, mimeType)
	if err != nil {
		return contractx.AssetReference{}, fmt.Errorf("%w: %w", contractx.ErrStorageWriteFailed, err)
	}

	ref = contractx.AssetReference{
		Key:       key,
		SessionID: sessionID,
		Kind:      kind,
		MimeType:  mimeType,
		Size:      int64(len(blob)),
		URL:       url,
		CreatedAt: s.now().UTC(),
	}
	log.Ctx(ctx).Info().Str("asset_key", key).Int64("size", ref.Size).Msg("asset saved")
	s.publish(ctx, contractx.Event{
		Type:      contractx.EventAssetSaved,
		SessionID: sessionID,
		AssetKey:  key,
		At:        ref.CreatedAt,
	})
	return ref, nil
}

// LoadAsset reads back the blob stored under key.
func (s *Service) LoadAsset(ctx context.Context, key string) (pa contractx.PortfolioAsset, err error) {
	ctx, done := s.begin(ctx, "load_asset", "")
	defer func() { err = done(err, contractx.ErrUpstreamUnavailable) }()

	key = strings.TrimSpace(key)
	sessionID, kind, err := assetx.ParseKey(key)
	if err != nil {
		return contractx.PortfolioAsset{}, err
	}

	obj, err := retry.Do(ctx, s.policy, func(ctx context.Context) (assetx.Object, error) {
		return s.assets.Get(ctx, key)
	})
	if err != nil {
		return contractx.PortfolioAsset{}, err
	}

	return contractx.PortfolioAsset{
		Ref: contractx.AssetReference{
			Key:       key,
			SessionID: sessionID,
			Kind:      kind,
			MimeType:  obj.MimeType,
			Size:      int64(len(obj.Data)),
		},
		Data: obj.Data,
	}, nil
}

// DeleteAsset removes key. Assets are only ever deleted on an explicit request.
func (s *Service) DeleteAsset(ctx context.Context, key string) (err error) {
	ctx, done := s.begin(ctx, "delete_asset", "")
	defer func() { err = done(err, contractx.ErrUpstreamUnavailable) }()

	key = strings.TrimSpace(key)
	sessionID, _, err := assetx.ParseKey(key)
	if err != nil {
		return err
	}
	if err := s.assets.Delete(ctx, key); err != nil {
		return err
	}

	log.Ctx(ctx).Info().Str("asset_key", key).Msg("asset deleted")
	s.publish(ctx, contractx.Event{
		Type:      contractx.EventAssetDeleted,
		SessionID: sessionID,
		AssetKey:  key,
		At:        s.now().UTC(),
	})
	return nil
}

// ListAssets returns references for every asset saved under sessionID, sorted by key.
// Only key-derived fields are set.
func (s *Service) ListAssets(ctx context.Context, sessionID string) (refs []contractx.AssetReference, err error) {
	ctx, done := s.begin(ctx, "list_assets", sessionID)
	defer func() { err = done(err, contractx.ErrUpstreamUnavailable) }()

	sessionID = strings.TrimSpace(sessionID)
	if err := statex.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	keys, err := s.assets.List(ctx, assetx.SessionPrefix(s.cfg.AssetPrefix, sessionID))
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	refs = make([]contractx.AssetReference, 0, len(keys))
	for _, key := range keys {
		owner, kind, err := assetx.ParseKey(key)
		if err != nil || owner != sessionID {
			continue
		}
		refs = append(refs, contractx.AssetReference{Key: key, SessionID: owner, Kind: kind})
	}
	return refs, nil
}
