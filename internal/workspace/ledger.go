package workspace

import "github.com/funnyzak/reqkit/pkg/request"

// RecordResponse prepends entry to the history of requestID and selects
// it. Entries that carry both or neither outcome are rejected.
func (s *Store) RecordResponse(requestID string, entry request.ResponseHistoryItem) bool {
	if !entry.Valid() {
		return false
	}
	s.mu.Lock()
	idx := s.indexOf(requestID)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	it := &s.requests[idx]
	responses := make([]request.ResponseHistoryItem, 0, len(it.Responses)+1)
	responses = append(responses, entry.Clone())
	responses = append(responses, it.Responses...)
	if s.maxHistory > 0 && len(responses) > s.maxHistory {
		responses = responses[:s.maxHistory]
	}
	it.Responses = responses
	it.SelectedResponseID = entry.ID
	it.UpdatedAt = s.now().UnixMilli()
	s.commit(Event{Kind: EventHistoryChanged, RequestID: requestID, ResponseID: entry.ID})
	return true
}

// SelectResponse points the selection at responseID if it exists.
func (s *Store) SelectResponse(requestID, responseID string) bool {
	s.mu.Lock()
	idx := s.indexOf(requestID)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	if _, ok := s.requests[idx].FindResponse(responseID); !ok {
		s.mu.Unlock()
		return false
	}
	s.requests[idx].SelectedResponseID = responseID
	s.commit(Event{Kind: EventHistoryChanged, RequestID: requestID, ResponseID: responseID})
	return true
}

// DeleteResponse removes one entry. Deleting the selected entry clears the
// selection so the newest entry is shown.
func (s *Store) DeleteResponse(requestID, responseID string) bool {
	s.mu.Lock()
	idx := s.indexOf(requestID)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	it := &s.requests[idx]
	pos := -1
	for i, r := range it.Responses {
		if r.ID == responseID {
			pos = i
			break
		}
	}
	if pos < 0 {
		s.mu.Unlock()
		return false
	}
	it.Responses = append(it.Responses[:pos:pos], it.Responses[pos+1:]...)
	if it.SelectedResponseID == responseID {
		it.SelectedResponseID = ""
	}
	s.commit(Event{Kind: EventHistoryChanged, RequestID: requestID, ResponseID: responseID})
	return true
}

// ClearResponses empties the history and the selection.
func (s *Store) ClearResponses(requestID string) bool {
	s.mu.Lock()
	idx := s.indexOf(requestID)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.requests[idx].Responses = []request.ResponseHistoryItem{}
	s.requests[idx].SelectedResponseID = ""
	s.commit(Event{Kind: EventHistoryChanged, RequestID: requestID})
	return true
}

// ShownResponse resolves the entry to display for requestID.
func (s *Store) ShownResponse(requestID string) (request.ResponseHistoryItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(requestID)
	if idx < 0 {
		return request.ResponseHistoryItem{}, false
	}
	shown, ok := s.requests[idx].ShownResponse()
	if !ok {
		return request.ResponseHistoryItem{}, false
	}
	return shown.Clone(), true
}

// BeginLoading marks one send as in flight.
func (s *Store) BeginLoading() {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight != 1 {
		s.mu.Unlock()
		return
	}
	s.commit(Event{Kind: EventLoadingChanged, Loading: true})
}

// EndLoading marks one send as finished.
func (s *Store) EndLoading() {
	s.mu.Lock()
	if s.inFlight == 0 {
		s.mu.Unlock()
		return
	}
	s.inFlight--
	if s.inFlight != 0 {
		s.mu.Unlock()
		return
	}
	s.commit(Event{Kind: EventLoadingChanged, Loading: false})
}

// Loading reports whether any send is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight > 0
}
