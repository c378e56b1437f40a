package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientSendMessage(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":7,"chat":{"id":42},"text":"hi"}}`)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "TOKEN")
	msg, err := client.SendMessage(context.Background(), 42, "hi", &SendOptions{
		ParseMode:   parseModeHTML,
		ReplyMarkup: mainMenu(),
	})
	require.NoError(t, err)

	assert.Equal(t, "/botTOKEN/sendMessage", gotPath)
	assert.Equal(t, float64(42), gotBody["chat_id"])
	assert.Equal(t, "HTML", gotBody["parse_mode"])
	assert.Contains(t, gotBody, "reply_markup")
	assert.Equal(t, 7, msg.MessageID)
}

func TestHTTPClientGetUpdates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, float64(11), body["offset"])
		_, _ = io.WriteString(w, `{"ok":true,"result":[
			{"update_id":11,"message":{"message_id":1,"from":{"id":5},"chat":{"id":5},"text":"/start"}},
			{"update_id":12,"callback_query":{"id":"cb","from":{"id":5},"data":"n|"}}
		]}`)
	}))
	defer srv.Close()

	updates, err := NewHTTPClient(srv.URL, "T").GetUpdates(context.Background(), 11, 0)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, "/start", updates[0].Message.Text)
	assert.Equal(t, "n|", updates[1].CallbackQuery.Data)
}

func TestHTTPClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"ok":false,"error_code":400,"description":"Bad Request: message is not modified"}`)
	}))
	defer srv.Close()

	err := NewHTTPClient(srv.URL, "T").EditMessageText(context.Background(), 1, 2, "same", nil)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Code)
	assert.True(t, notModified(err))
}

func TestHTTPClientSendDocumentMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botT/sendDocument", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "42", r.FormValue("chat_id"))

		file, header, err := r.FormFile("document")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "theory_1.pdf", header.Filename)
		assert.Equal(t, "%PDF", string(data))

		_, _ = io.WriteString(w, `{"ok":true,"result":{}}`)
	}))
	defer srv.Close()

	err := NewHTTPClient(srv.URL, "T").SendDocument(context.Background(), 42, "theory_1.pdf", []byte("%PDF"))
	require.NoError(t, err)
}
