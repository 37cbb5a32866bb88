// Package kopis は公演カタログ(KOPIS)の公演詳細APIクライアント
package kopis

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/pmg1020/AquaTicketWeb/internal/domain/showtime"
)

var (
	ErrPerformanceNotFound = errors.New("公演が見つかりません")
)

// maxAttempts はサーバーエラー・通信エラー時の最大試行回数
const maxAttempts = 3

// detailEnvelope は /pblprfr/{id} のレスポンス <dbs><db>...</db></dbs>
type detailEnvelope struct {
	XMLName xml.Name       `xml:"dbs"`
	DB      []detailRecord `xml:"db"`
}

type detailRecord struct {
	ID       string `xml:"mt20id"`
	Title    string `xml:"prfnm"`
	Poster   string `xml:"poster"`
	Facility string `xml:"fcltynm"`
}

// Client は公演詳細を取得する
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
	retryWait  time.Duration
}

func NewClient(baseURL, serviceKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: timeout},
		retryWait:  200 * time.Millisecond,
	}
}

// FetchMetadata は公演名・ポスター・会場名を取得する
func (c *Client) FetchMetadata(ctx context.Context, externalID string) (showtime.Metadata, error) {
	endpoint := fmt.Sprintf("%s/pblprfr/%s?service=%s",
		c.baseURL, url.PathEscape(externalID), url.QueryEscape(c.serviceKey))

	var body []byte
	operation := func() error {
		b, err := c.get(ctx, endpoint)
		if err != nil {
			return err
		}
		body = b
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryWait), maxAttempts-1),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return showtime.Metadata{}, err
	}

	var env detailEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return showtime.Metadata{}, fmt.Errorf("公演詳細の解析に失敗: %w", err)
	}
	if len(env.DB) == 0 {
		return showtime.Metadata{}, ErrPerformanceNotFound
	}
	d := env.DB[0]
	return showtime.Metadata{
		Title:     strings.TrimSpace(d.Title),
		PosterURL: strings.TrimSpace(d.Poster),
		Venue:     strings.TrimSpace(d.Facility),
	}, nil
}

// get は 5xx と通信エラーのみ再試行対象にする
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("リクエスト作成に失敗: %w", err))
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("公演詳細の取得に失敗: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスの読み込みに失敗: %w", err)
	}
	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("公演詳細APIがエラーを返しました: %d", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, backoff.Permanent(ErrPerformanceNotFound)
	case resp.StatusCode >= 400:
		return nil, backoff.Permanent(fmt.Errorf("公演詳細APIがエラーを返しました: %d", resp.StatusCode))
	}
	return body, nil
}
