package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/photo-story/internal/apperr"
	"github.com/kozaktomas/photo-story/internal/database"
	"github.com/kozaktomas/photo-story/internal/database/mock"
	"github.com/kozaktomas/photo-story/internal/timeline"
)

func TestTimelineHandler_Get(t *testing.T) {
	store := mock.NewMockPhotoStore()
	store.AddPhoto(database.PhotoRecord{FilePath: "late.jpg", DateTaken: "2024-05-01 18:00:00"})
	store.AddPhoto(database.PhotoRecord{
		FilePath:    "early.jpg",
		DateTaken:   "2024-05-01 08:00:00",
		Location:    &database.Address{Region: "Seoul", SubLocality: "Jongno-gu"},
		Coordinates: &database.Coordinates{Latitude: 37.57, Longitude: 126.97},
	})
	store.AddPhoto(database.PhotoRecord{FilePath: "other.jpg", DateTaken: "2024-05-02 08:00:00"})

	handler := NewTimelineHandler(timeline.NewBuilder(store, nil, "Detected: ", discardLogger()), discardLogger())

	req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"date": "2024-05-01"})
	rec := httptest.NewRecorder()
	handler.Get(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var resp TimelineResponse
	parseJSONResponse(t, rec, &resp)
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(resp.Items))
	}
	if resp.Items[0].FilePath != "early.jpg" || resp.Items[0].LocationLabel != "Seoul Jongno-gu" {
		t.Errorf("unexpected first item %+v", resp.Items[0])
	}
	if resp.Items[1].LocationLabel != timeline.NoLocationInfo {
		t.Errorf("unexpected second item %+v", resp.Items[1])
	}
}

func TestTimelineHandler_GetStorageError(t *testing.T) {
	store := mock.NewMockPhotoStore()
	store.FindError = apperr.Storage("failed to query photos by date", errors.New("closed"))
	handler := NewTimelineHandler(timeline.NewBuilder(store, nil, "", discardLogger()), discardLogger())

	req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"date": "2024-05-01"})
	rec := httptest.NewRecorder()
	handler.Get(rec, req)
	assertStatusCode(t, rec, http.StatusServiceUnavailable)
	assertJSONError(t, rec, "", "STORAGE_ERROR")
}

func TestTimelineHandler_UpdateStory(t *testing.T) {
	builder := timeline.NewBuilder(mock.NewMockPhotoStore(), nil, "", discardLogger())
	handler := NewTimelineHandler(builder, discardLogger())
	ch := builder.Events().Subscribe()
	defer builder.Events().Unsubscribe(ch)

	req := jsonRequest(t, http.MethodPut, "/", StoryRequest{FilePath: "a.jpg", Story: "breakfast"})
	req = requestWithChiParams(req, map[string]string{"date": "2024-05-01"})
	rec := httptest.NewRecorder()
	handler.UpdateStory(rec, req)
	assertStatusCode(t, rec, http.StatusOK)

	select {
	case ev := <-ch:
		if ev.Type != timeline.EventStoryUpdated || ev.Story != "breakfast" || ev.FilePath != "a.jpg" {
			t.Errorf("unexpected event %+v", ev)
		}
	default:
		t.Fatal("expected a story event")
	}

	t.Run("missing file path", func(t *testing.T) {
		req := jsonRequest(t, http.MethodPut, "/", StoryRequest{Story: "x"})
		req = requestWithChiParams(req, map[string]string{"date": "2024-05-01"})
		rec := httptest.NewRecorder()
		handler.UpdateStory(rec, req)
		assertStatusCode(t, rec, http.StatusBadRequest)
		assertJSONError(t, rec, "", "INVALID_INPUT")
	})

	t.Run("bad body", func(t *testing.T) {
		req := requestWithChiParams(httptest.NewRequest(http.MethodPut, "/", strings.NewReader("nope")), map[string]string{"date": "2024-05-01"})
		rec := httptest.NewRecorder()
		handler.UpdateStory(rec, req)
		assertStatusCode(t, rec, http.StatusBadRequest)
	})
}
