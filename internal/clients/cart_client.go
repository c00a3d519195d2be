package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"configurator-service/internal/models"
)

// CartClient hands a committed configuration to orders-service as a cart line
type CartClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Entry
}

// AddCartItemRequest is the cart line created from a finalized configuration
type AddCartItemRequest struct {
	ProductID  string                `json:"productId"`
	Quantity   int                   `json:"quantity"`
	UnitPrice  float64               `json:"unitPrice"`
	TotalPrice float64               `json:"totalPrice"`
	Selections models.Selections     `json:"selections"`
	Price      models.PriceBreakdown `json:"price"`
}

type cartItemResponse struct {
	Success bool `json:"success"`
	Data    *struct {
		ID string `json:"id"`
	} `json:"data,omitempty"`
	Message *string `json:"message,omitempty"`
}

// NewCartClient creates a cart client for orders-service
func NewCartClient(baseURL string, logger *logrus.Logger) *CartClient {
	return &CartClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.WithField("component", "cart-client"),
	}
}

// AddConfiguredItem creates a cart line for the finalized configuration and
// returns the new cart item id.
func (c *CartClient) AddConfiguredItem(ctx context.Context, tenantID string, item AddCartItemRequest) (string, error) {
	body, err := json.Marshal(item)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/api/v1/cart/items", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("X-Tenant-ID", tenantID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to add cart item: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("orders-service returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result cartItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode cart response: %w", err)
	}
	if !result.Success || result.Data == nil {
		return "", fmt.Errorf("orders-service rejected the cart item")
	}

	c.logger.WithFields(logrus.Fields{
		"cartItemId": result.Data.ID,
		"productId":  item.ProductID,
		"tenantId":   tenantID,
	}).Info("Configured item added to cart")
	return result.Data.ID, nil
}
