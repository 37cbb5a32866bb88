package kopis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const detailXML = `<?xml version="1.0" encoding="UTF-8"?>
<dbs>
  <db>
    <mt20id>PF132236</mt20id>
    <prfnm> 레미제라블 </prfnm>
    <poster>http://www.kopis.or.kr/upload/pfmPoster/PF_PF132236.gif</poster>
    <fcltynm>블루스퀘어 (신한카드홀)</fcltynm>
    <prfstate>공연중</prfstate>
  </db>
</dbs>`

func newTestClient(url string) *Client {
	c := NewClient(url, "test-key", time.Second)
	c.retryWait = time.Millisecond
	return c
}

func TestClient_FetchMetadata(t *testing.T) {
	t.Run("公演詳細を取得できる", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/pblprfr/PF132236", r.URL.Path)
			assert.Equal(t, "test-key", r.URL.Query().Get("service"))
			w.Write([]byte(detailXML))
		}))
		defer srv.Close()

		md, err := newTestClient(srv.URL).FetchMetadata(context.Background(), "PF132236")

		require.NoError(t, err)
		assert.Equal(t, "레미제라블", md.Title)
		assert.Equal(t, "블루스퀘어 (신한카드홀)", md.Venue)
		assert.Contains(t, md.PosterURL, "PF_PF132236.gif")
	})

	t.Run("空の結果は見つからない", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<dbs></dbs>`))
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).FetchMetadata(context.Background(), "PF0")

		assert.ErrorIs(t, err, ErrPerformanceNotFound)
	})

	t.Run("サーバーエラーは再試行する", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Write([]byte(detailXML))
		}))
		defer srv.Close()

		md, err := newTestClient(srv.URL).FetchMetadata(context.Background(), "PF132236")

		require.NoError(t, err)
		assert.Equal(t, "레미제라블", md.Title)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("クライアントエラーは再試行しない", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).FetchMetadata(context.Background(), "PF132236")

		assert.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("再試行上限を超えるとエラー", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).FetchMetadata(context.Background(), "PF132236")

		assert.Error(t, err)
		assert.Equal(t, int32(maxAttempts), calls.Load())
	})
}
