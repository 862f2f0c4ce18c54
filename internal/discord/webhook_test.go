package discord

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendJSON(t *testing.T) {
	var gotContentType string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	hook := NewWebhook(srv.URL, 5*time.Second, zerolog.Nop())
	msg := &Message{Content: "🚨 **Motion Detected**", Embeds: []Embed{{Title: "Motion Detected"}}}

	require.NoError(t, hook.Send(context.Background(), msg, nil))
	assert.Contains(t, gotContentType, "application/json")

	var decoded Message
	require.NoError(t, json.Unmarshal(gotBody, &decoded))
	assert.Equal(t, msg.Content, decoded.Content)
}

func TestSendMultipartWithAttachment(t *testing.T) {
	var payloadJSON string
	var fileBytes []byte
	var fileName string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		payloadJSON = r.FormValue("payload_json")

		f, header, err := r.FormFile("files[0]")
		require.NoError(t, err)
		defer f.Close()
		fileName = header.Filename
		fileBytes, _ = io.ReadAll(f)

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	hook := NewWebhook(srv.URL, 5*time.Second, zerolog.Nop())
	msg := &Message{Content: "🚨 **Motion Detected**"}
	att := &Attachment{Filename: "thumbnail.jpg", ContentType: "image/jpeg", Data: []byte{0xff, 0xd8}}

	require.NoError(t, hook.Send(context.Background(), msg, att))

	assert.True(t, strings.Contains(payloadJSON, "Motion Detected"))
	assert.Equal(t, "thumbnail.jpg", fileName)
	assert.Equal(t, []byte{0xff, 0xd8}, fileBytes)
}

func TestSendSurfacesFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	hook := NewWebhook(srv.URL, 5*time.Second, zerolog.Nop())
	err := hook.Send(context.Background(), &Message{Content: "x"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
