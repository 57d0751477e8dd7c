package cos

import (
	"bytes"
	"context"
	"encoding/xml"
	"hash/crc64"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cos "github.com/tencentyun/cos-go-sdk-v5"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
)

// mockTransport plays the COS XML API against an in-memory bucket.
type mockTransport struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failPut bool
	// pageSize caps keys per listing page; 0 means 1000.
	pageSize int
	listings int
}

func newMockTransport() *mockTransport {
	return &mockTransport{objects: map[string][]byte{}, types: map[string]string{}}
}

type listBucketResult struct {
	XMLName     xml.Name `xml:"ListBucketResult"`
	Name        string   `xml:"Name"`
	Prefix      string   `xml:"Prefix"`
	Marker      string   `xml:"Marker"`
	NextMarker  string   `xml:"NextMarker,omitempty"`
	IsTruncated bool     `xml:"IsTruncated"`
	Contents []struct {
		Key  string `xml:"Key"`
		Size int64  `xml:"Size"`
	} `xml:"Contents"`
}

func response(status int, header http.Header, body []byte) *http.Response {
	if header == nil {
		header = make(http.Header)
	}
	return &http.Response{StatusCode: status, Header: header, Body: io.NopCloser(bytes.NewReader(body))}
}

func (m *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.TrimPrefix(req.URL.Path, "/")
	switch req.Method {
	case http.MethodPut:
		if m.failPut {
			return response(http.StatusForbidden, nil, []byte(`<?xml version="1.0"?><Error><Code>AccessDenied</Code></Error>`)), nil
		}
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		m.objects[key] = data
		m.types[key] = req.Header.Get("Content-Type")

		header := make(http.Header)
		header.Set("x-cos-hash-crc64ecma", strconv.FormatUint(crc64.Checksum(data, crc64.MakeTable(crc64.ECMA)), 10))
		header.Set("ETag", `"mocketag"`)
		return response(http.StatusOK, header, nil), nil

	case http.MethodGet:
		if req.URL.RawQuery != "" {
			params, _ := url.ParseQuery(req.URL.RawQuery)
			prefix, marker := params.Get("prefix"), params.Get("marker")
			m.listings++
			result := listBucketResult{Name: "test-bucket", Prefix: prefix, Marker: marker}
			keys := make([]string, 0, len(m.objects))
			for k := range m.objects {
				if strings.HasPrefix(k, prefix) && k > marker {
					keys = append(keys, k)
				}
			}
			sort.Strings(keys)
			limit := m.pageSize
			if limit <= 0 {
				limit = 1000
			}
			if len(keys) > limit {
				keys = keys[:limit]
				result.IsTruncated = true
				result.NextMarker = keys[len(keys)-1]
			}
			for _, k := range keys {
				result.Contents = append(result.Contents, struct {
					Key  string `xml:"Key"`
					Size int64  `xml:"Size"`
				}{Key: k, Size: int64(len(m.objects[k]))})
			}
			raw, err := xml.Marshal(result)
			if err != nil {
				return nil, err
			}
			return response(http.StatusOK, http.Header{"Content-Type": {"application/xml"}}, raw), nil
		}
		data, ok := m.objects[key]
		if !ok {
			return response(http.StatusNotFound, nil, []byte(`<?xml version="1.0"?><Error><Code>NoSuchKey</Code></Error>`)), nil
		}
		header := make(http.Header)
		if ct := m.types[key]; ct != "" {
			header.Set("Content-Type", ct)
		}
		return response(http.StatusOK, header, data), nil

	case http.MethodDelete:
		delete(m.objects, key)
		delete(m.types, key)
		return response(http.StatusNoContent, nil, nil), nil
	}
	return response(http.StatusMethodNotAllowed, nil, nil), nil
}

func newMockStore(t *testing.T) (*Store, *mockTransport) {
	t.Helper()

	transport := newMockTransport()
	bucketURL, err := url.Parse("https://test-bucket-1250000000.cos.ap-singapore.myqcloud.com")
	require.NoError(t, err)

	store, err := New(Config{}, WithClient(cos.NewClient(&cos.BaseURL{BucketURL: bucketURL}, &http.Client{Transport: transport})))
	require.NoError(t, err)
	return store, transport
}

func TestStoreRoundTripIsByteIdentical(t *testing.T) {
	t.Parallel()

	store, _ := newMockStore(t)
	ctx := context.Background()
	blob := []byte("RIFF\x00\x01binary\xffpayload")
	key := "sparkpath/sess-1/audio/clip.wav"

	objURL, err := store.Put(ctx, key, blob, "audio/wav")
	require.NoError(t, err)
	assert.Contains(t, objURL, key)

	obj, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, blob, obj.Data)
	assert.Equal(t, "audio/wav", obj.MimeType)
}

func TestStoreGetMissingIsAssetNotFound(t *testing.T) {
	t.Parallel()

	store, _ := newMockStore(t)
	_, err := store.Get(context.Background(), "sparkpath/sess-1/document/missing.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, contractx.ErrAssetNotFound)
}

func TestStorePutFailureIsStorageWriteFailed(t *testing.T) {
	t.Parallel()

	store, transport := newMockStore(t)
	transport.failPut = true

	_, err := store.Put(context.Background(), "sparkpath/sess-1/document/a.pdf", []byte("x"), "application/pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, contractx.ErrStorageWriteFailed)

	_, err = store.Put(context.Background(), " ", []byte("x"), "")
	assert.ErrorIs(t, err, contractx.ErrStorageWriteFailed)
}

func TestStoreListAndDelete(t *testing.T) {
	t.Parallel()

	store, transport := newMockStore(t)
	ctx := context.Background()

	for _, key := range []string{
		"sparkpath/sess-1/audio/a.wav",
		"sparkpath/sess-1/document/b.pdf",
		"sparkpath/sess-2/audio/c.wav",
	} {
		_, err := store.Put(ctx, key, []byte(key), "")
		require.NoError(t, err)
	}

	keys, err := store.List(ctx, "sparkpath/sess-1/")
	require.NoError(t, err)
	assert.Equal(t, []string{"sparkpath/sess-1/audio/a.wav", "sparkpath/sess-1/document/b.pdf"}, keys)

	require.NoError(t, store.Delete(ctx, "sparkpath/sess-1/audio/a.wav"))
	transport.mu.Lock()
	_, exists := transport.objects["sparkpath/sess-1/audio/a.wav"]
	transport.mu.Unlock()
	assert.False(t, exists)
}

func TestStoreListFollowsPages(t *testing.T) {
	t.Parallel()

	store, transport := newMockStore(t)
	transport.pageSize = 2
	ctx := context.Background()

	var want []string
	for i := 0; i < 5; i++ {
		key := "sparkpath/sess-1/document/" + strconv.Itoa(i) + ".txt"
		_, err := store.Put(ctx, key, []byte(key), "text/plain")
		require.NoError(t, err)
		want = append(want, key)
	}
	_, err := store.Put(ctx, "sparkpath/sess-2/document/other.txt", []byte("x"), "text/plain")
	require.NoError(t, err)

	keys, err := store.List(ctx, "sparkpath/sess-1/")
	require.NoError(t, err)
	assert.Equal(t, want, keys)

	transport.mu.Lock()
	defer transport.mu.Unlock()
	assert.Equal(t, 3, transport.listings)
}

func TestNewValidatesBucketURL(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{BucketURL: "not-a-url"})
	assert.Error(t, err)

	_, err = New(Config{BucketURL: "https://bucket-1250000000.cos.ap-singapore.myqcloud.com", SecretID: "id", SecretKey: "key"})
	assert.NoError(t, err)
}
