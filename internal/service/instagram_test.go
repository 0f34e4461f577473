package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	config "github.com/postpilothq/postpilot/configs"
	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecretKey = "0123456789abcdef0123456789abcdef"

type graphStub struct {
	mu            sync.Mutex
	mediaCalls    []map[string]interface{}
	publishCalls  []map[string]interface{}
	statusPolls   int
	finishOnPoll  int    // poll number (1-based) that returns FINISHED; 0 = never
	terminalState string // returned instead of IN_PROGRESS when set
}

func (g *graphStub) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		defer g.mu.Unlock()

		switch {
		case r.Method == "POST" && strings.HasSuffix(r.URL.Path, "/media_publish"):
			var payload map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			g.publishCalls = append(g.publishCalls, payload)
			json.NewEncoder(w).Encode(map[string]string{"id": "published-1"})

		case r.Method == "POST" && strings.HasSuffix(r.URL.Path, "/media"):
			var payload map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			g.mediaCalls = append(g.mediaCalls, payload)
			json.NewEncoder(w).Encode(map[string]string{"id": fmt.Sprintf("container-%d", len(g.mediaCalls))})

		case r.Method == "GET" && r.URL.Query().Get("fields") == "status_code":
			g.statusPolls++
			status := "IN_PROGRESS"
			if g.terminalState != "" {
				status = g.terminalState
			} else if g.finishOnPoll > 0 && g.statusPolls >= g.finishOnPoll {
				status = "FINISHED"
			}
			json.NewEncoder(w).Encode(map[string]string{"status_code": status})

		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestPublisher(t *testing.T, srv *httptest.Server) (*instagramService, *models.Connection, *[]time.Duration) {
	t.Helper()

	encrypted, err := utils.Encrypt([]byte("ig-access-token"), []byte(testSecretKey))
	require.NoError(t, err)

	var sleeps []time.Duration
	svc := &instagramService{
		cfg:     config.Config{SecretKey: testSecretKey},
		client:  srv.Client(),
		baseURL: srv.URL,
		sleep:   func(d time.Duration) { sleeps = append(sleeps, d) },
	}
	conn := &models.Connection{
		UserID:      1,
		AccountID:   "17840000000000000",
		AccessToken: encrypted,
		IsConnected: true,
	}
	return svc, conn, &sleeps
}

func TestPublishImage(t *testing.T) {
	stub := &graphStub{}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	svc, conn, sleeps := newTestPublisher(t, srv)

	id, err := svc.Publish(context.Background(), conn, "https://cdn.example.com/pic.jpg", "a caption", models.MediaTypeImage)
	require.NoError(t, err)
	assert.Equal(t, "published-1", id)

	require.Len(t, stub.mediaCalls, 1)
	assert.Equal(t, "https://cdn.example.com/pic.jpg", stub.mediaCalls[0]["image_url"])
	assert.Equal(t, "a caption", stub.mediaCalls[0]["caption"])
	assert.Equal(t, "ig-access-token", stub.mediaCalls[0]["access_token"])

	require.Len(t, stub.publishCalls, 1)
	assert.Equal(t, "container-1", stub.publishCalls[0]["creation_id"])

	assert.Zero(t, stub.statusPolls, "images are not polled")
	assert.Empty(t, *sleeps)
}

func TestPublishVideoPollsUntilFinished(t *testing.T) {
	stub := &graphStub{finishOnPoll: 3}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	svc, conn, sleeps := newTestPublisher(t, srv)

	id, err := svc.Publish(context.Background(), conn, "https://cdn.example.com/clip.mp4", "video caption", models.MediaTypeVideo)
	require.NoError(t, err)
	assert.Equal(t, "published-1", id)

	require.Len(t, stub.mediaCalls, 1)
	assert.Equal(t, "REELS", stub.mediaCalls[0]["media_type"])
	assert.Equal(t, "https://cdn.example.com/clip.mp4", stub.mediaCalls[0]["video_url"])

	assert.Equal(t, 3, stub.statusPolls)
	require.Len(t, *sleeps, 2, "no sleep before the first poll")
	for _, d := range *sleeps {
		assert.Equal(t, 5*time.Second, d)
	}
	assert.Len(t, stub.publishCalls, 1)
}

func TestPublishVideoGivesUpAfterPollBound(t *testing.T) {
	stub := &graphStub{} // never finishes
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	svc, conn, sleeps := newTestPublisher(t, srv)

	_, err := svc.Publish(context.Background(), conn, "https://cdn.example.com/clip.mp4", "video caption", models.MediaTypeVideo)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not ready after 30 attempts")

	assert.Equal(t, 30, stub.statusPolls)
	assert.Len(t, *sleeps, 29)
	assert.Empty(t, stub.publishCalls, "never published an unfinished container")
}

func TestPublishVideoStopsOnTerminalContainerState(t *testing.T) {
	stub := &graphStub{terminalState: "ERROR"}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	svc, conn, sleeps := newTestPublisher(t, srv)

	_, err := svc.Publish(context.Background(), conn, "https://cdn.example.com/clip.mp4", "video caption", models.MediaTypeVideo)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERROR")

	assert.Equal(t, 1, stub.statusPolls, "terminal state ends polling immediately")
	assert.Empty(t, *sleeps)
	assert.Empty(t, stub.publishCalls)
}

func TestPublishSurfacesGraphAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid image URL"}}`))
	}))
	defer srv.Close()

	svc, conn, _ := newTestPublisher(t, srv)

	_, err := svc.Publish(context.Background(), conn, "https://cdn.example.com/pic.jpg", "a caption", models.MediaTypeImage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
