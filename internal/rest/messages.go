package rest

import (
	"context"
	"fmt"
	"strconv"

	"github.com/matheus3301/gchat/internal/groupchat"
	"go.uber.org/zap"
)

// FetchGroupMessages returns one page of history older than cursor (nil
// means from the newest message). Messages come back newest-first.
func (c *Client) FetchGroupMessages(ctx context.Context, groupID int64, cursor *int64, limit int) (*groupchat.Page, error) {
	req := c.http.R().
		SetContext(ctx).
		SetPathParam("groupID", strconv.FormatInt(groupID, 10)).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&envelope[groupchat.Page]{}).
		SetError(&envelope[groupchat.Page]{})
	if cursor != nil {
		req.SetQueryParam("cursor", strconv.FormatInt(*cursor, 10))
	}

	resp, err := req.Get("/groups/{groupID}/messages")
	if err != nil {
		return nil, fmt.Errorf("fetch messages of group %d: %w", groupID, err)
	}
	env, _ := resp.Result().(*envelope[groupchat.Page])
	if env == nil {
		env = &envelope[groupchat.Page]{}
	}
	if err := check(resp, env); err != nil {
		return nil, fmt.Errorf("fetch messages of group %d: %w", groupID, err)
	}

	c.logger.Debug("fetched history page",
		zap.Int64("group_id", groupID),
		zap.Int("count", len(env.Data.Messages)),
		zap.Bool("has_more", env.Data.HasMore),
	)
	return &env.Data, nil
}
