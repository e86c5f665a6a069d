package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	require.Error(t, err)

	_, err = NewClient(ClientConfig{BaseURL: "https://pay.example"})
	require.Error(t, err)

	client, err := NewClient(ClientConfig{BaseURL: "https://pay.example/", APIKey: "sk_test"})
	require.NoError(t, err)
	require.Equal(t, "https://pay.example", client.baseURL)
}

func TestCreateSessionPostsFormAndDecodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		require.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		require.Equal(t, "8.99", r.PostForm.Get("amount"))
		require.Equal(t, "nzd", r.PostForm.Get("currency"))
		require.Equal(t, "offer-1", r.PostForm.Get("metadata[offer_id]"))

		_ = json.NewEncoder(w).Encode(Session{
			ID:            "cs_123",
			URL:           "https://pay.example/cs_123",
			PaymentStatus: StatusUnpaid,
			Metadata:      map[string]string{MetadataOfferID: "offer-1"},
		})
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{BaseURL: server.URL, APIKey: "sk_test"})
	require.NoError(t, err)

	session, err := client.CreateSession(context.Background(), CreateSessionParams{
		OfferID:  "offer-1",
		Amount:   8.99,
		Currency: "NZD",
	})
	require.NoError(t, err)
	require.Equal(t, "cs_123", session.ID)
	require.Equal(t, "offer-1", session.OfferID())
}

func TestGetSessionSurfacesProcessorErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"no such session"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{BaseURL: server.URL, APIKey: "sk_test"})
	require.NoError(t, err)

	_, err = client.GetSession(context.Background(), "cs_missing")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 404")
}
