package workspace

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/funnyzak/reqkit/pkg/request"
)

func okEntry(id string) request.ResponseHistoryItem {
	return request.NewSuccessItem(id, time.Now(), &request.HTTPResponse{Status: 200})
}

func TestRecordResponseOrderingAndSelection(t *testing.T) {
	s := newTestStore(t)
	r := s.CreateRequest("r")

	for _, id := range []string{"one", "two", "three"} {
		if !s.RecordResponse(r.ID, okEntry(id)) {
			t.Fatalf("record %s failed", id)
		}
		got, _ := s.Request(r.ID)
		if got.Responses[0].ID != id || got.SelectedResponseID != id {
			t.Fatalf("expected %s newest and selected, got %s/%s", id, got.Responses[0].ID, got.SelectedResponseID)
		}
	}
}

func TestRecordResponseRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	r := s.CreateRequest("r")
	both := okEntry("x")
	both.Error = &request.HTTPError{Message: "e"}
	if s.RecordResponse(r.ID, both) {
		t.Fatalf("entry with both outcomes must be rejected")
	}
	if s.RecordResponse(r.ID, request.ResponseHistoryItem{ID: "none"}) {
		t.Fatalf("entry with no outcome must be rejected")
	}
	if s.RecordResponse("missing", okEntry("y")) {
		t.Fatalf("unknown request must be rejected")
	}
}

func TestSelectDeleteClear(t *testing.T) {
	s := newTestStore(t)
	r := s.CreateRequest("r")
	s.RecordResponse(r.ID, okEntry("old"))
	s.RecordResponse(r.ID, request.NewErrorItem("mid", time.Now(), errors.New("refused")))
	s.RecordResponse(r.ID, okEntry("new"))

	if s.SelectResponse(r.ID, "ghost") {
		t.Fatalf("selecting an unknown id must fail")
	}
	if !s.SelectResponse(r.ID, "mid") {
		t.Fatalf("select failed")
	}
	shown, _ := s.ShownResponse(r.ID)
	if shown.ID != "mid" || shown.Error == nil || shown.Error.Status != request.DefaultErrorStatus {
		t.Fatalf("unexpected shown response %+v", shown)
	}

	s.DeleteResponse(r.ID, "mid")
	got, _ := s.Request(r.ID)
	if got.SelectedResponseID != "" {
		t.Fatalf("deleting the selected entry must clear the selection")
	}
	shown, _ = s.ShownResponse(r.ID)
	if shown.ID != "new" {
		t.Fatalf("expected fallback to newest, got %s", shown.ID)
	}

	s.SelectResponse(r.ID, "old")
	s.DeleteResponse(r.ID, "new")
	got, _ = s.Request(r.ID)
	if got.SelectedResponseID != "old" {
		t.Fatalf("deleting another entry must keep the selection")
	}

	s.ClearResponses(r.ID)
	got, _ = s.Request(r.ID)
	if len(got.Responses) != 0 || got.SelectedResponseID != "" {
		t.Fatalf("clear must empty history and selection")
	}
	if _, found := s.ShownResponse(r.ID); found {
		t.Fatalf("no shown response expected after clear")
	}
}

func TestMaxHistory(t *testing.T) {
	s := New(nil, WithMaxHistory(2))
	r := s.CreateRequest("r")
	s.RecordResponse(r.ID, okEntry("a"))
	s.RecordResponse(r.ID, okEntry("b"))
	s.RecordResponse(r.ID, okEntry("c"))
	got, _ := s.Request(r.ID)
	if len(got.Responses) != 2 || got.Responses[1].ID != "b" {
		t.Fatalf("unexpected capped history %+v", got.Responses)
	}
}

func TestLoadingCounter(t *testing.T) {
	s := newTestStore(t)
	var mu sync.Mutex
	var transitions []bool
	s.Subscribe(func(ev Event) {
		if ev.Kind == EventLoadingChanged {
			mu.Lock()
			transitions = append(transitions, ev.Loading)
			mu.Unlock()
		}
	})

	s.BeginLoading()
	s.BeginLoading()
	s.EndLoading()
	if !s.Loading() {
		t.Fatalf("expected loading while one send is in flight")
	}
	s.EndLoading()
	s.EndLoading()
	if s.Loading() {
		t.Fatalf("expected idle")
	}
	if len(transitions) != 2 || !transitions[0] || transitions[1] {
		t.Fatalf("unexpected transitions %v", transitions)
	}
}
