package newsletter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/asiedupress/storefront-service/internal/domain"
)

func TestUpsertSendsContact(t *testing.T) {
	var got contactRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/contacts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("api-key") != "brevo-key" {
			t.Errorf("missing api-key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	store := NewBrevoStore("brevo-key", []int64{3}, srv.URL, 5*time.Second)
	err := store.Upsert(context.Background(), domain.Subscriber{
		Email: "ama@example.com",
		Name:  "Ama Serwaa Mensah",
		Phone: "024 123 4567",
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if got.Email != "ama@example.com" {
		t.Fatalf("unexpected email %q", got.Email)
	}
	if !got.UpdateEnabled {
		t.Fatal("upserts must set updateEnabled")
	}
	if got.Attributes["FNAME"] != "Ama" || got.Attributes["LNAME"] != "Serwaa Mensah" {
		t.Fatalf("unexpected name attributes %v", got.Attributes)
	}
	if got.Attributes["SMS"] != "+233241234567" {
		t.Fatalf("unexpected phone %q", got.Attributes["SMS"])
	}
	if len(got.ListIDs) != 1 || got.ListIDs[0] != 3 {
		t.Fatalf("unexpected list ids %v", got.ListIDs)
	}
}

func TestUpsertProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"invalid_parameter"}`))
	}))
	defer srv.Close()

	store := NewBrevoStore("brevo-key", nil, srv.URL, 5*time.Second)
	if err := store.Upsert(context.Background(), domain.Subscriber{Email: "x@example.com", Name: "X"}); err == nil {
		t.Fatal("expected error on provider rejection")
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"":               "",
		"0241234567":     "+233241234567",
		"024 123 4567":   "+233241234567",
		"+233241234567":  "+233241234567",
		"233241234567":   "+233241234567",
		"+4479460000":    "+4479460000",
		"(024) 123-4567": "+233241234567",
	}
	for in, want := range cases {
		if got := NormalizePhone(in); got != want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplitName(t *testing.T) {
	first, last := SplitName("Ama Serwaa Mensah")
	if first != "Ama" || last != "Serwaa Mensah" {
		t.Fatalf("got %q %q", first, last)
	}
	first, last = SplitName("Ama")
	if first != "Ama" || last != "" {
		t.Fatalf("got %q %q", first, last)
	}
}
