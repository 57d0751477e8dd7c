// Package cos stores session assets in Tencent Cloud Object Storage.
package cos

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	cos "github.com/tencentyun/cos-go-sdk-v5"

	"github.com/tanpawarit/sparkpath-gateway/agent/asset"
	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
)

var _ asset.Store = (*Store)(nil)

const (
	defaultTimeout  = 60 * time.Second
	maxObjectBytes  = 64 << 20
	defaultMimeType = "application/octet-stream"
)

type Config struct {
	BucketURL string        `envconfig:"BUCKET_URL" split_words:"true" required:"true"`
	SecretID  string        `envconfig:"SECRET_ID" split_words:"true"`
	SecretKey string        `envconfig:"SECRET_KEY" split_words:"true"`
	Timeout   time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"60s"`
}

type Option func(*options)

type options struct {
	client     client
	httpClient *http.Client
}

// WithClient injects a preconfigured COS client and skips credential setup.
func WithClient(c *cos.Client) Option {
	return func(o *options) {
		if c != nil {
			o.client = newCosClient(c)
		}
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

type Store struct {
	client client
}

func New(cfg Config, opts ...Option) (*Store, error) {
	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.client != nil {
		return &Store{client: o.client}, nil
	}

	raw := strings.TrimSpace(cfg.BucketURL)
	if raw == "" {
		return nil, errors.New("cos bucket url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid cos bucket url %q", raw)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &cos.AuthorizationTransport{
				SecretID:  strings.TrimSpace(cfg.SecretID),
				SecretKey: strings.TrimSpace(cfg.SecretKey),
			},
		}
	}

	return &Store{client: newCosClient(cos.NewClient(&cos.BaseURL{BucketURL: u}, httpClient))}, nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte, mimeType string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: empty key", contractx.ErrStorageWriteFailed)
	}
	if mimeType == "" {
		mimeType = defaultMimeType
	}
	if err := s.client.PutObject(ctx, key, bytes.NewReader(data), mimeType); err != nil {
		return "", fmt.Errorf("%w: put %s: %v", contractx.ErrStorageWriteFailed, key, err)
	}
	return s.client.ObjectURL(key), nil
}

func (s *Store) Get(ctx context.Context, key string) (asset.Object, error) {
	body, header, err := s.client.GetObject(ctx, key)
	if err != nil {
		if cos.IsNotFoundError(err) {
			return asset.Object{}, fmt.Errorf("%w: %s", contractx.ErrAssetNotFound, key)
		}
		return asset.Object{}, fmt.Errorf("%w: get %s: %v", contractx.ErrUpstreamUnavailable, key, err)
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxObjectBytes+1))
	if err != nil {
		return asset.Object{}, fmt.Errorf("%w: read %s: %v", contractx.ErrUpstreamUnavailable, key, err)
	}
	if len(data) > maxObjectBytes {
		return asset.Object{}, fmt.Errorf("%w: object %s exceeds %d bytes", contractx.ErrUpstreamUnavailable, key, maxObjectBytes)
	}

	mimeType := header.Get("Content-Type")
	if mimeType == "" {
		mimeType = defaultMimeType
	}
	return asset.Object{Data: data, MimeType: mimeType}, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.DeleteObject(ctx, key); err != nil && !cos.IsNotFoundError(err) {
		return fmt.Errorf("%w: delete %s: %v", contractx.ErrUpstreamUnavailable, key, err)
	}
	return nil
}

// List walks every page of the bucket listing under prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var (
		keys   []string
		marker string
	)
	for {
		result, err := s.client.GetBucket(ctx, prefix, marker)
		if err != nil {
			if cos.IsNotFoundError(err) {
				return keys, nil
			}
			return nil, fmt.Errorf("%w: list %s: %v", contractx.ErrUpstreamUnavailable, prefix, err)
		}
		for _, obj := range result.Contents {
			keys = append(keys, obj.Key)
		}
		if !result.IsTruncated {
			return keys, nil
		}

		next := result.NextMarker
		if next == "" && len(result.Contents) > 0 {
			next = result.Contents[len(result.Contents)-1].Key
		}
		if next == "" || next == marker {
			return nil, fmt.Errorf("%w: list %s: truncated listing without a next marker", contractx.ErrUpstreamUnavailable, prefix)
		}
		marker = next
	}
}
