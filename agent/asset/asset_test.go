package asset

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
)

func TestBuildKeyLayout(t *testing.T) {
	t.Parallel()

	key := BuildKey("portfolio/", "sess-1", contractx.AssetAudio, "audio/wav")
	if !strings.HasPrefix(key, "portfolio/sess-1/audio/") {
		t.Fatalf("BuildKey() = %q", key)
	}
	if !strings.HasSuffix(key, ".wav") {
		t.Fatalf("BuildKey() = %q, want .wav suffix", key)
	}

	sessionID, kind, err := ParseKey(key)
	if err != nil {
		t.Fatalf("ParseKey() error = %v", err)
	}
	if sessionID != "sess-1" || kind != contractx.AssetAudio {
		t.Fatalf("ParseKey() = %q, %q", sessionID, kind)
	}

	if got := BuildKey("", "s", contractx.AssetDocument, "application/x-unknown"); !strings.HasPrefix(got, DefaultKeyPrefix+"/s/document/") {
		t.Fatalf("BuildKey() default prefix = %q", got)
	}
}

func TestParseKeyRejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, key := range []string{"", "a/b", "p/s/video/x.mp4", "p/../s/audio/x", "/p/s/audio/x"} {
		if _, _, err := ParseKey(key); !errors.Is(err, contractx.ErrAssetNotFound) {
			t.Fatalf("ParseKey(%q) error = %v, want ErrAssetNotFound", key, err)
		}
	}
}

func TestExtension(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"audio/mpeg":                ".mp3",
		"text/plain; charset=utf-8": ".txt",
		"application/pdf":           ".pdf",
		"not a mime":                "",
	}
	for in, want := range cases {
		if got := Extension(in); got != want {
			t.Fatalf("Extension(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	blob := []byte{0x00, 0xff, 0x10, 0x80}

	if _, err := store.Put(ctx, "p/s/document/a.pdf", blob, "application/pdf"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	blob[0] = 0x42

	obj, err := store.Get(ctx, "p/s/document/a.pdf")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(obj.Data, []byte{0x00, 0xff, 0x10, 0x80}) || obj.MimeType != "application/pdf" {
		t.Fatalf("Get() = %+v", obj)
	}

	keys, err := store.List(ctx, "p/s/")
	if err != nil || len(keys) != 1 {
		t.Fatalf("List() = %v, %v", keys, err)
	}

	if err := store.Delete(ctx, "p/s/document/a.pdf"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, "p/s/document/a.pdf"); !errors.Is(err, contractx.ErrAssetNotFound) {
		t.Fatalf("Get() after Delete error = %v", err)
	}
}
