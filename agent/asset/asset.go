package asset

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
)

const DefaultKeyPrefix = "sparkpath"

// Object is a blob read back from the object store.
type Object struct {
	Data     []byte
	MimeType string
}

// Store is the remote object store. Get reports a missing key with ErrAssetNotFound.
type Store interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) (url string, err error)
	Get(ctx context.Context, key string) (Object, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

var knownExtensions = map[string]string{
	"audio/wav":        ".wav",
	"audio/x-wav":      ".wav",
	"audio/wave":       ".wav",
	"audio/mpeg":       ".mp3",
	"audio/mp3":        ".mp3",
	"audio/webm":       ".webm",
	"audio/ogg":        ".ogg",
	"application/pdf":  ".pdf",
	"application/json": ".json",
	"text/plain":       ".txt",
	"text/markdown":    ".md",
	"image/png":        ".png",
	"image/jpeg":       ".jpg",
}

// Extension picks the file extension for mimeType, or "" if unknown.
func Extension(mimeType string) string {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return ""
	}
	if ext, ok := knownExtensions[mt]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mt); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

// BuildKey lays out an object key as {prefix}/{session}/{kind}/{uuid}{ext}.
func BuildKey(prefix, sessionID string, kind contractx.AssetKind, mimeType string) string {
	return SessionPrefix(prefix, sessionID) + string(kind) + "/" + uuid.NewString() + Extension(mimeType)
}

// SessionPrefix is the key prefix shared by every asset of one session.
func SessionPrefix(prefix, sessionID string) string {
	p := strings.Trim(strings.TrimSpace(prefix), "/")
	if p == "" {
		p = DefaultKeyPrefix
	}
	return p + "/" + sessionID + "/"
}

// ParseKey recovers session and kind from a key built by BuildKey.
func ParseKey(key string) (sessionID string, kind contractx.AssetKind, err error) {
	clean := path.Clean("/" + key)
	if clean != "/"+key {
		return "", "", fmt.Errorf("%w: malformed asset key %q", contractx.ErrAssetNotFound, key)
	}
	parts := strings.Split(key, "/")
	if len(parts) < 4 {
		return "", "", fmt.Errorf("%w: malformed asset key %q", contractx.ErrAssetNotFound, key)
	}
	kind = contractx.AssetKind(parts[len(parts)-2])
	if !kind.Valid() {
		return "", "", fmt.Errorf("%w: unknown asset kind in key %q", contractx.ErrAssetNotFound, key)
	}
	return parts[len(parts)-3], kind, nil
}
