package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"configurator-service/internal/models"
)

// CatalogClient reads configurator descriptors and related products from
// products-service. Descriptors are cached in Redis so a session start does
// not always pay a cross-service round trip; the cache is invalidated by
// product events.
type CatalogClient struct {
	baseURL    string
	httpClient *http.Client
	redis      *redis.Client
	cacheTTL   time.Duration
	logger     *logrus.Entry
}

// configuratorResponse is the products-service envelope for a descriptor
type configuratorResponse struct {
	Success bool                        `json:"success"`
	Data    *models.ConfiguratorProduct `json:"data,omitempty"`
	Message *string                     `json:"message,omitempty"`
}

// relatedResponse is the products-service envelope for related products
type relatedResponse struct {
	Success bool                         `json:"success"`
	Data    []models.CrossSellSuggestion `json:"data,omitempty"`
}

// NewCatalogClient creates a catalog client. redisClient may be nil, which
// disables caching.
func NewCatalogClient(baseURL string, redisClient *redis.Client, cacheTTL time.Duration, logger *logrus.Logger) *CatalogClient {
	return &CatalogClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		redis:    redisClient,
		cacheTTL: cacheTTL,
		logger:   logger.WithField("component", "catalog-client"),
	}
}

func descriptorCacheKey(tenantID, productID string) string {
	return fmt.Sprintf("configurator:descriptor:%s:%s", tenantID, productID)
}

// GetConfiguratorProduct fetches the full configurator descriptor of a
// product. A fetch failure is the caller's LoadError; nothing is cached on
// failure.
func (c *CatalogClient) GetConfiguratorProduct(ctx context.Context, tenantID, productID string) (*models.ConfiguratorProduct, error) {
	if cached := c.readCache(ctx, tenantID, productID); cached != nil {
		return cached, nil
	}

	url := fmt.Sprintf("%s/api/v1/products/%s/configurator", c.baseURL, productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Tenant-ID", tenantID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch configurator descriptor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("product %s not found", productID)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("products-service returned %d: %s", resp.StatusCode, string(body))
	}

	var result configuratorResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode configurator descriptor: %w", err)
	}
	if !result.Success || result.Data == nil {
		return nil, fmt.Errorf("products-service returned no descriptor for product %s", productID)
	}

	c.writeCache(ctx, tenantID, productID, result.Data)
	return result.Data, nil
}

// GetRelatedProducts returns complementary products for cross-sell
func (c *CatalogClient) GetRelatedProducts(ctx context.Context, tenantID, productID string) ([]models.CrossSellSuggestion, error) {
	url := fmt.Sprintf("%s/api/v1/products/%s/related", c.baseURL, productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Tenant-ID", tenantID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch related products: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("products-service returned %d: %s", resp.StatusCode, string(body))
	}

	var result relatedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode related products: %w", err)
	}
	return result.Data, nil
}

// InvalidateDescriptor drops the cached descriptor for a product
func (c *CatalogClient) InvalidateDescriptor(ctx context.Context, tenantID, productID string) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, descriptorCacheKey(tenantID, productID)).Err(); err != nil {
		c.logger.WithError(err).WithField("productId", productID).Warn("Failed to invalidate descriptor cache")
	}
}

func (c *CatalogClient) readCache(ctx context.Context, tenantID, productID string) *models.ConfiguratorProduct {
	if c.redis == nil {
		return nil
	}
	payload, err := c.redis.Get(ctx, descriptorCacheKey(tenantID, productID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Warn("Descriptor cache read failed")
		}
		return nil
	}
	var product models.ConfiguratorProduct
	if err := json.Unmarshal(payload, &product); err != nil {
		c.logger.WithError(err).Warn("Dropping unreadable cached descriptor")
		c.redis.Del(ctx, descriptorCacheKey(tenantID, productID))
		return nil
	}
	return &product
}

func (c *CatalogClient) writeCache(ctx context.Context, tenantID, productID string, product *models.ConfiguratorProduct) {
	if c.redis == nil {
		return
	}
	payload, err := json.Marshal(product)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, descriptorCacheKey(tenantID, productID), payload, c.cacheTTL).Err(); err != nil {
		c.logger.WithError(err).Warn("Descriptor cache write failed")
	}
}
