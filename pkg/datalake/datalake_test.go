package datalake

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientFetchSendsTokenAsQuery(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.RawQuery != "sv=2022&sig=abc" {
			t.Errorf("query = %q, want the shared access token", r.URL.RawQuery)
		}
		fmt.Fprint(w, `[{"FECHA_CIERRE":"2024-05-10"}]`)
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{Token: "sv=2022&sig=abc"})
	body, err := client.Fetch(context.Background(), server.URL+"/export/resumen.json")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(body) != `[{"FECHA_CIERRE":"2024-05-10"}]` {
		t.Fatalf("Fetch() = %s", body)
	}
}

func TestClientFetchNonSuccessStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "expired token", http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{Token: "tok"})
	if _, err := client.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("Fetch() expected error for a 403 response")
	}
}

func TestClientFetchMissingEndpoint(t *testing.T) {
	t.Parallel()

	client := NewClient(Config{Token: "tok"})
	if _, err := client.Fetch(context.Background(), "   "); !errors.Is(err, ErrEndpointNotConfigured) {
		t.Fatalf("Fetch() error = %v, want ErrEndpointNotConfigured", err)
	}
}

func TestClientFetchMissingToken(t *testing.T) {
	t.Parallel()

	client := NewClient(Config{})
	if _, err := client.Fetch(context.Background(), "https://lake.example.com/export.json"); !errors.Is(err, ErrTokenNotConfigured) {
		t.Fatalf("Fetch() error = %v, want ErrTokenNotConfigured", err)
	}
}

func TestClientFetchInvalidURL(t *testing.T) {
	t.Parallel()

	client := NewClient(Config{Token: "tok"})
	if _, err := client.Fetch(context.Background(), "::not-a-url"); err == nil {
		t.Fatal("Fetch() expected error for an invalid url")
	}
}
