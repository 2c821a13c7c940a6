package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookNotifier(t *testing.T) {
	got := make(chan Alert, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var a Alert
		_ = json.NewDecoder(r.Body).Decode(&a)
		got <- a
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	require.NoError(t, n.Notify(context.Background(), Alert{Title: "Prime Trigger", Message: "size 5"}))

	a := <-got
	assert.Equal(t, "Prime Trigger", a.Title)
	assert.Equal(t, "size 5", a.Message)
}

func TestWebhookNotifier_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	assert.Error(t, NewWebhookNotifier(srv.URL).Notify(context.Background(), Alert{Title: "x"}))
}

type recordingNotifier struct {
	alerts chan Alert
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, a Alert) error {
	r.alerts <- a
	return r.err
}

func TestMulti_JoinsErrors(t *testing.T) {
	ok := &recordingNotifier{alerts: make(chan Alert, 1)}
	bad := &recordingNotifier{alerts: make(chan Alert, 1), err: errors.New("down")}

	err := Multi{ok, bad, NewLogNotifier()}.Notify(context.Background(), Alert{Title: "t"})
	assert.Error(t, err)
	assert.Len(t, ok.alerts, 1)
	assert.Len(t, bad.alerts, 1)
}

func TestAsync_Delivers(t *testing.T) {
	rec := &recordingNotifier{alerts: make(chan Alert, 1)}
	require.NoError(t, NewAsync(rec, time.Second).Notify(context.Background(), Alert{Title: "t"}))

	select {
	case a := <-rec.alerts:
		assert.Equal(t, "t", a.Title)
	case <-time.After(time.Second):
		t.Fatal("alert not delivered")
	}
}
