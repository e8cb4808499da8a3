package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utopium/chatflow/pkg/adapters/api"
	"github.com/utopium/chatflow/pkg/domain"
	"github.com/utopium/chatflow/pkg/ports"
)

func TestClient_GenerateCaption(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, api.PathCaption, r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"context": "new season"}, body)

		_, _ = w.Write([]byte(`{"text":"Caption! #anime"}`))
	}))
	defer srv.Close()

	c := api.New(srv.URL+"/", api.WithToken("tok"))
	text, err := c.GenerateCaption(context.Background(), "new season")
	require.NoError(t, err)
	assert.Equal(t, "Caption! #anime", text)
}

func TestClient_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := api.New(srv.URL).GenerateCaption(context.Background(), "x")
	require.Error(t, err)

	var statusErr *api.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Status)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestClient_UploadFlow(t *testing.T) {
	var uploaded []byte
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc(api.PathUploadURL, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ref.png", body["filename"])
		assert.Equal(t, "reference", body["purpose"])
		_ = json.NewEncoder(w).Encode(map[string]string{
			"uploadUrl": srv.URL + "/bucket/ref.png?X-Signature=abc",
			"objectKey": "uploads/ref.png",
		})
	})
	mux.HandleFunc("/bucket/ref.png", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Empty(t, r.Header.Get("Authorization"), "pre-signed uploads carry no auth header")
		assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
		uploaded, _ = io.ReadAll(r.Body)
	})

	c := api.New(srv.URL, api.WithToken("tok"))
	ctx := context.Background()

	target, err := c.RequestUploadURL(ctx, "ref.png", domain.PurposeReference)
	require.NoError(t, err)
	assert.Equal(t, "uploads/ref.png", target.ObjectKey)

	file := &domain.Attachment{Name: "ref.png", ContentType: "image/png", Data: []byte("png-bytes")}
	require.NoError(t, c.Upload(ctx, target.UploadURL, file))
	assert.Equal(t, []byte("png-bytes"), uploaded)
}

func TestClient_GenerateImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, api.PathImageGen, r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"prompt":"fox","model":"dall-e-3","size":"1024x1792"}`, string(raw), "refImageId is omitted without a reference")
		_, _ = w.Write([]byte(`{"url":"https://cdn.example/fox.png"}`))
	}))
	defer srv.Close()

	url, err := api.New(srv.URL).GenerateImage(context.Background(), ports.ImageRequest{Prompt: "fox", Model: "dall-e-3", Size: "1024x1792"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/fox.png", url)
}

func TestClient_PublishPost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, api.PathPosts, r.URL.Path)
		var body ports.PostRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "animeutopia", body.Fields[domain.FieldAccount])
		assert.Equal(t, "uploads/bg.png", body.ObjectKey)
		_, _ = w.Write([]byte(`{"id":"post-1"}`))
	}))
	defer srv.Close()

	id, err := api.New(srv.URL).PublishPost(context.Background(), ports.PostRequest{
		Fields:    map[string]string{domain.FieldAccount: "animeutopia"},
		ObjectKey: "uploads/bg.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "post-1", id)
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := api.New(srv.URL, api.WithTimeout(20*time.Millisecond)).GenerateCaption(context.Background(), "x")
	assert.Error(t, err)
}

func TestClient_NotConfigured(t *testing.T) {
	_, err := api.New("").GenerateCaption(context.Background(), "x")
	assert.ErrorIs(t, err, api.ErrNotConfigured)
}
