// Package badges — provider.go содержит клиент внешнего провайдера значков.
package badges

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"serotonyl.ru/aura-backend/internal/common"
)

// Provider отдаёт значки пользователя из внешнего источника.
type Provider interface {
	Fetch(ctx context.Context, username string) ([]ProviderBadge, error)
}

// HTTPProvider читает значки постранично по HTTP.
type HTTPProvider struct {
	baseURL  string
	pageSize int
	client   *http.Client
}

// NewHTTPProvider создаёт HTTP-клиент провайдера значков.
func NewHTTPProvider(baseURL string, pageSize int, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		baseURL:  baseURL,
		pageSize: pageSize,
		client:   &http.Client{Timeout: timeout},
	}
}

// providerPage — одна страница ответа провайдера.
type providerPage struct {
	Badges  []ProviderBadge `json:"badges"`
	HasMore bool            `json:"has_more"`
}

// Fetch собирает все страницы значков пользователя. Любая сетевая или
// протокольная ошибка сворачивается в ErrBadgeProviderUnavailable:
// вызывающему важен лишь факт недоступности источника.
func (p *HTTPProvider) Fetch(ctx context.Context, username string) ([]ProviderBadge, error) {
	var all []ProviderBadge

	for page := 1; ; page++ {
		chunk, err := p.fetchPage(ctx, username, page)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrBadgeProviderUnavailable, err)
		}
		all = append(all, chunk.Badges...)
		if !chunk.HasMore || len(chunk.Badges) == 0 {
			return all, nil
		}
	}
}

func (p *HTTPProvider) fetchPage(ctx context.Context, username string, page int) (*providerPage, error) {
	endpoint := fmt.Sprintf("%s/users/%s/badges?page=%d&per_page=%d",
		p.baseURL, url.PathEscape(username), page, p.pageSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса к провайдеру: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("провайдер вернул статус %d", resp.StatusCode)
	}

	var parsed providerPage
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("ошибка разбора ответа провайдера: %w", err)
	}
	return &parsed, nil
}
