package blob

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SupabaseStorage fetches objects from a Supabase Storage bucket using the
// service-role key. It is the primary source; the local directory backs it up.
type SupabaseStorage struct {
	baseURL    string
	serviceKey string
	bucket     string
	httpClient *http.Client
}

func NewSupabaseStorage(baseURL, serviceKey, bucket string, timeout time.Duration) *SupabaseStorage {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SupabaseStorage{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		bucket:     bucket,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *SupabaseStorage) Name() string { return "supabase" }

func (s *SupabaseStorage) Fetch(ctx context.Context, key string) ([]byte, bool, error) {
	endpoint := s.baseURL + "/storage/v1/object/" + url.PathEscape(s.bucket) + "/" + escapeKey(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build storage request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("fetch object %s: %w", key, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, false, fmt.Errorf("read object %s: %w", key, err)
		}
		return data, true, nil
	case http.StatusNotFound, http.StatusBadRequest:
		// The storage API answers 400 for keys in buckets that do not exist;
		// both cases mean the object is not here.
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("storage returned %d for object %s", resp.StatusCode, key)
	}
}

// escapeKey escapes each path segment while preserving the separators.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
