package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"teraBridgeBot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRapidAdapterResolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/url", r.URL.Path)
		assert.Equal(t, "https://www.terabox.com/s/1abcdef", r.URL.Query().Get("url"))
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		w.Write([]byte(`{
			"file_name": "movie.mp4",
			"size": "1.5 GB",
			"sizebytes": 1610612736,
			"link": "https://d.example/plain",
			"direct_link": "https://d.example/fast"
		}`))
	}))
	defer srv.Close()

	a := NewRapidAdapter(srv.URL, "test-key", 5*time.Second)
	desc, err := a.Resolve(context.Background(), types.ResourceLocator{ShareID: "1abcdef"})
	require.NoError(t, err)
	assert.Equal(t, "movie.mp4", desc.Name)
	assert.Equal(t, int64(1610612736), desc.SizeBytes)
	assert.Equal(t, "https://d.example/plain", desc.PrimaryLink)
	assert.Equal(t, "https://d.example/fast", desc.AlternateLink)
	assert.Equal(t, "rapid", desc.ResolverUsed)
	assert.True(t, desc.HasFastLink())
}

func TestRapidAdapterHumanSizeFallback(t *testing.T) {
	// sizebytes missing: the humanized size string is parsed instead.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"file_name": "doc.pdf", "size": "2 MB", "link": "https://d.example/x"}`))
	}))
	defer srv.Close()

	a := NewRapidAdapter(srv.URL, "k", 5*time.Second)
	desc, err := a.Resolve(context.Background(), types.ResourceLocator{ShareID: "1abcdef"})
	require.NoError(t, err)
	assert.Equal(t, int64(2000000), desc.SizeBytes)
}

func TestRapidAdapterPlaceholderLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"file_name": "x.bin", "size": "N/A", "link": "N/A", "direct_link": ""}`))
	}))
	defer srv.Close()

	a := NewRapidAdapter(srv.URL, "k", 5*time.Second)
	_, err := a.Resolve(context.Background(), types.ResourceLocator{ShareID: "1abcdef"})
	var re *ResolverError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, KindBadResponse, re.Kind)
	assert.ErrorIs(t, err, ErrNoUsableLink)
}

func TestRapidAdapterServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewRapidAdapter(srv.URL, "k", 5*time.Second)
	_, err := a.Resolve(context.Background(), types.ResourceLocator{ShareID: "1abcdef"})
	var re *ResolverError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, KindTransport, re.Kind)
}

func TestRapidAdapterMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	a := NewRapidAdapter(srv.URL, "k", 5*time.Second)
	_, err := a.Resolve(context.Background(), types.ResourceLocator{ShareID: "1abcdef"})
	var re *ResolverError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, KindBadResponse, re.Kind)
}

func TestCloudfetchAdapterResolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api", r.URL.Path)
		assert.Equal(t, "1abcdef", r.URL.Query().Get("surl"))
		w.Write([]byte(`{
			"ok": true,
			"list": [{
				"filename": "clip.mkv",
				"size": 52428800,
				"dlink": "https://d.example/plain",
				"fast_dlink": "https://d.example/fast"
			}]
		}`))
	}))
	defer srv.Close()

	a := NewCloudfetchAdapter(srv.URL, 5*time.Second)
	desc, err := a.Resolve(context.Background(), types.ResourceLocator{ShareID: "1abcdef"})
	require.NoError(t, err)
	assert.Equal(t, "clip.mkv", desc.Name)
	assert.Equal(t, int64(52428800), desc.SizeBytes)
	assert.Equal(t, "https://d.example/fast", desc.BestLink())
	assert.Equal(t, "cloudfetch", desc.ResolverUsed)
}

func TestCloudfetchAdapterUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok": false, "message": "share not found"}`))
	}))
	defer srv.Close()

	a := NewCloudfetchAdapter(srv.URL, 5*time.Second)
	_, err := a.Resolve(context.Background(), types.ResourceLocator{ShareID: "1abcdef"})
	var re *ResolverError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, KindBadResponse, re.Kind)
	assert.Contains(t, err.Error(), "share not found")
}

func TestCloudfetchAdapterEmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok": true, "list": []}`))
	}))
	defer srv.Close()

	a := NewCloudfetchAdapter(srv.URL, 5*time.Second)
	_, err := a.Resolve(context.Background(), types.ResourceLocator{ShareID: "1abcdef"})
	var re *ResolverError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, KindBadResponse, re.Kind)
}

func TestCloudfetchAdapterMissingName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok": true, "list": [{"dlink": "https://d.example/x"}]}`))
	}))
	defer srv.Close()

	a := NewCloudfetchAdapter(srv.URL, 5*time.Second)
	desc, err := a.Resolve(context.Background(), types.ResourceLocator{ShareID: "1abcdef"})
	require.NoError(t, err)
	assert.Equal(t, types.DefaultFileName, desc.Name)
	assert.Equal(t, int64(0), desc.SizeBytes)
}

func TestFlexibleSizeDecoding(t *testing.T) {
	cases := []struct {
		raw  string
		want int64
	}{
		{`123456`, 123456},
		{`"1 GB"`, 1000000000},
		{`"500 MB"`, 500000000},
		{`"N/A"`, 0},
		{`""`, 0},
		{`null`, 0},
		{`"garbage"`, 0},
	}
	for _, tc := range cases {
		var s flexibleSize
		err := s.UnmarshalJSON([]byte(tc.raw))
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, int64(s), tc.raw)
	}
}
