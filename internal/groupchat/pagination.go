package groupchat

import (
	"context"
	"errors"
	"slices"
	"time"

	"go.uber.org/zap"
)

var errNoFetcher = errors.New("no history fetcher configured")

// PaginateMessages prepends a page of older messages. older is in server order
// (newest-first). Messages whose id is already in the room are skipped; the
// rest are reversed and put in front. Returns the number of messages added.
func (r *Room) PaginateMessages(older []GroupMessage) int {
	r.mu.Lock()
	added := r.paginateLocked(older)
	groupID := r.state.CurrentGroupID
	r.mu.Unlock()

	if len(added) > 0 {
		r.bus.Emit(KindMessagesChanged, groupID)
	}
	return len(added)
}

func (r *Room) paginateLocked(older []GroupMessage) []GroupMessage {
	seen := make(map[int64]struct{}, len(r.state.Messages)+len(older))
	for _, m := range r.state.Messages {
		seen[m.ID] = struct{}{}
	}

	unique := make([]GroupMessage, 0, len(older))
	for _, m := range older {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		unique = append(unique, m)
	}
	r.metrics.DuplicatesDropped(len(older) - len(unique))
	if len(unique) == 0 {
		return nil
	}

	slices.Reverse(unique)
	merged := make([]GroupMessage, 0, len(unique)+len(r.state.Messages))
	merged = append(merged, unique...)
	merged = append(merged, r.state.Messages...)
	r.state.Messages = merged
	r.state.TotalMessages = len(merged)
	return unique
}

// LoadMoreMessages fetches the next older page for groupID. At most one fetch
// runs at a time; calls made while one is in flight, or after history is
// exhausted, return immediately. Fetch failures are logged and end pagination
// (HasMoreMessages=false) with LastFetchError set; they are never returned.
// The result is how many messages of the fetched page were new to the room.
func (r *Room) LoadMoreMessages(ctx context.Context, groupID int64) int {
	r.mu.Lock()
	if r.state.IsLoadingMessages || !r.state.HasMoreMessages {
		r.mu.Unlock()
		return 0
	}
	if r.state.CurrentGroupID != 0 && r.state.CurrentGroupID != groupID {
		r.mu.Unlock()
		r.logger.Debug("ignoring history request for inactive group", zap.Int64("group_id", groupID))
		return 0
	}
	r.state.IsLoadingMessages = true
	var cursor *int64
	if r.state.CurrentCursor != nil {
		c := *r.state.CurrentCursor
		cursor = &c
	}
	epoch := r.epoch
	r.mu.Unlock()
	r.bus.Emit(KindPaginationChanged, groupID)

	page, err := r.fetch(ctx, groupID, cursor)

	r.mu.Lock()
	if r.epoch != epoch {
		// The room was left or switched while the fetch was in flight.
		r.mu.Unlock()
		return 0
	}
	r.state.IsLoadingMessages = false
	var added []GroupMessage
	switch {
	case err != nil:
		r.state.HasMoreMessages = false
		r.state.LastFetchError = err.Error()
	case page == nil || len(page.Messages) == 0:
		r.state.HasMoreMessages = false
		r.state.LastFetchError = ""
	default:
		added = r.paginateLocked(page.Messages)
		r.state.CurrentCursor = page.NextCursor
		r.state.HasMoreMessages = page.HasMore
		r.state.LastFetchError = ""
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("failed to load older messages", zap.Int64("group_id", groupID), zap.Error(err))
	}
	if len(added) > 0 {
		r.bus.Emit(KindMessagesChanged, groupID)
		r.bus.Emit(KindPageLoaded, PageLoaded{GroupID: groupID, Messages: added})
	}
	r.bus.Emit(KindPaginationChanged, groupID)
	return len(added)
}

func (r *Room) fetch(ctx context.Context, groupID int64, cursor *int64) (*Page, error) {
	if r.fetcher == nil {
		return nil, errNoFetcher
	}
	start := time.Now()
	page, err := r.fetcher.FetchGroupMessages(ctx, groupID, cursor, r.pageSize)
	r.metrics.ObserveFetch(time.Since(start), err)
	return page, err
}
