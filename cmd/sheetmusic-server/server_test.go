package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/sheetmusic/pkg/sheetmusic"
	"github.com/tendant/sheetmusic/pkg/sheetmusic/api"
	"github.com/tendant/sheetmusic/pkg/sheetmusic/config"
)

func TestServer_CreateAndList(t *testing.T) {
	cfg, err := config.Load(config.WithPort("0"), config.WithJWTSecret("server-test"))
	require.NoError(t, err)

	rt, err := cfg.BuildService(context.Background(), nil)
	require.NoError(t, err)
	defer rt.Close()

	server := httptest.NewServer(newHTTPServer(cfg, rt, newLogger(cfg)).Handler)
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	token, err := api.IssueToken(api.NewAuth("server-test"), sheetmusic.Member{ID: 5, Email: "five@example.com"}, time.Minute)
	require.NoError(t, err)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("title", "Gymnopedie"))
	require.NoError(t, writer.WriteField("writer", "Satie"))
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, server.URL+api.BasePath+"/", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(server.URL + api.BasePath + "/search/writer?q=Satie")
	require.NoError(t, err)
	defer resp.Body.Close()

	var page sheetmusic.Page[sheetmusic.SheetMusicSummary]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	require.Len(t, page.Content, 1)
	assert.Equal(t, "Gymnopedie", page.Content[0].Title)
	assert.Equal(t, "five@example.com", page.Content[0].OwnerEmail)
}
