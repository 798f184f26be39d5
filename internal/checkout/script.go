package checkout

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPScript fetches the checkout script from the gateway CDN. A successful
// non-empty download is what "loaded" means outside a browser.
type HTTPScript struct {
	URL        string
	HTTPClient *http.Client
}

func NewHTTPScript(url string) *HTTPScript {
	return &HTTPScript{
		URL:        url,
		HTTPClient: &http.Client{Timeout: 20 * time.Second},
	}
}

func (s *HTTPScript) Load(ctx context.Context) error {
	if s.URL == "" {
		return fmt.Errorf("checkout script url is empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return err
	}
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch checkout script: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("fetch checkout script: http %d", resp.StatusCode)
	}
	n, err := io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read checkout script: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("checkout script is empty")
	}
	return nil
}
