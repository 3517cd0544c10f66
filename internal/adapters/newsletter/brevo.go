package newsletter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/asiedupress/storefront-service/internal/domain"
)

const defaultBaseURL = "https://api.brevo.com"

// BrevoStore upserts newsletter contacts into Brevo lists. Contacts are
// keyed by email on the Brevo side, so repeated subscriptions update the
// existing contact instead of erroring.
type BrevoStore struct {
	baseURL    string
	apiKey     string
	listIDs    []int64
	httpClient *http.Client
}

func NewBrevoStore(apiKey string, listIDs []int64, baseURL string, timeout time.Duration) *BrevoStore {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BrevoStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		listIDs:    listIDs,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type contactRequest struct {
	Email         string            `json:"email"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	ListIDs       []int64           `json:"listIds,omitempty"`
	UpdateEnabled bool              `json:"updateEnabled"`
}

func (s *BrevoStore) Upsert(ctx context.Context, subscriber domain.Subscriber) error {
	first, last := SplitName(subscriber.Name)
	attrs := map[string]string{}
	if first != "" {
		attrs["FNAME"] = first
	}
	if last != "" {
		attrs["LNAME"] = last
	}
	if phone := NormalizePhone(subscriber.Phone); phone != "" {
		attrs["SMS"] = phone
	}

	payload, err := json.Marshal(contactRequest{
		Email:         subscriber.Email,
		Attributes:    attrs,
		ListIDs:       s.listIDs,
		UpdateEnabled: true,
	})
	if err != nil {
		return fmt.Errorf("encode contact: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v3/contacts", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build contact request: %w", err)
	}
	req.Header.Set("api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upsert contact: %w", err)
	}
	defer resp.Body.Close()

	// 201 created, 204 updated in place.
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("brevo returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// SplitName breaks a display name into Brevo's FNAME/LNAME attributes.
// Everything after the first space goes into the last name.
func SplitName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	if i := strings.IndexByte(full, ' '); i > 0 {
		return full[:i], strings.TrimSpace(full[i+1:])
	}
	return full, ""
}

// NormalizePhone converts Ghanaian local numbers to E.164. Brevo rejects SMS
// attributes without a country code, so "0241234567" becomes "+233241234567".
// Numbers already carrying "+" pass through unchanged.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == '+' {
			return r
		}
		return -1
	}, phone)
	switch {
	case strings.HasPrefix(cleaned, "+"):
		return cleaned
	case strings.HasPrefix(cleaned, "0") && len(cleaned) == 10:
		return "+233" + cleaned[1:]
	case strings.HasPrefix(cleaned, "233"):
		return "+" + cleaned
	default:
		return cleaned
	}
}
