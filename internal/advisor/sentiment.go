package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const fearGreedURL = "https://api.alternative.me/fng/?limit=1"

type fearGreedResponse struct {
	Data []struct {
		Value          string `json:"value"`
		Classification string `json:"value_classification"`
	} `json:"data"`
}

// FearGreedClient fetches the crypto fear & greed index from alternative.me.
type FearGreedClient struct {
	apiURL     string
	httpClient *http.Client
}

// NewFearGreedClient creates a client with default timeouts.
func NewFearGreedClient() *FearGreedClient {
	return &FearGreedClient{
		apiURL:     fearGreedURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Fetch returns the latest index reading.
func (c *FearGreedClient) Fetch(ctx context.Context) (SentimentReading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL, nil)
	if err != nil {
		return SentimentReading{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SentimentReading{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return SentimentReading{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return SentimentReading{}, err
	}

	var data fearGreedResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return SentimentReading{}, err
	}
	if len(data.Data) == 0 {
		return SentimentReading{}, fmt.Errorf("empty fear & greed response")
	}

	value, err := strconv.Atoi(data.Data[0].Value)
	if err != nil {
		return SentimentReading{}, fmt.Errorf("malformed index value %q", data.Data[0].Value)
	}

	return SentimentReading{
		Value:          value,
		Classification: data.Data[0].Classification,
	}, nil
}
