package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/matheus3301/gchat/internal/api"
	"github.com/matheus3301/gchat/internal/groupchat"
)

type ctl struct {
	c       *api.Client
	profile string
	jsonOut bool
}

func (cl *ctl) run(ctx context.Context, name string, args []string) error {
	switch name {
	case "status":
		return cl.status(ctx)
	case "join":
		if len(args) != 1 {
			return usageError("join <group id>")
		}
		id, err := parseID(args[0], "group id")
		if err != nil {
			return err
		}
		return cl.join(ctx, id)
	case "leave":
		if err := cl.c.LeaveRoom(ctx); err != nil {
			return err
		}
		cl.done("Left room")
		return nil
	case "room":
		return cl.room(ctx)
	case "more":
		return cl.more(ctx)
	case "send":
		return cl.send(ctx, args)
	case "typing":
		if len(args) != 1 {
			return usageError("typing <on|off>")
		}
		on, err := parseOnOff(args[0])
		if err != nil {
			return err
		}
		if err := cl.c.SetTyping(ctx, on); err != nil {
			return err
		}
		cl.done("Typing status sent")
		return nil
	case "seen":
		if len(args) != 1 {
			return usageError("seen <message id>")
		}
		id, err := parseID(args[0], "message id")
		if err != nil {
			return err
		}
		if err := cl.c.MarkSeen(ctx, id); err != nil {
			return err
		}
		cl.done("Marked as seen")
		return nil
	case "history":
		limit := 0
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return usageError("history [N]")
			}
			limit = n
		}
		return cl.history(ctx, limit)
	case "upload":
		if len(args) == 0 {
			return usageError("upload <file>...")
		}
		return cl.upload(ctx, args)
	case "uploads":
		switch {
		case len(args) == 0:
			return cl.uploads(ctx)
		case len(args) == 1 && args[0] == "clear":
			return cl.clearUploads(ctx)
		}
		return usageError("uploads [clear]")
	case "watch":
		prefix := ""
		if len(args) > 0 {
			prefix = args[0]
		}
		return cl.watch(ctx, prefix)
	}
	printUsage()
	return fmt.Errorf("unknown command: %s", name)
}

func (cl *ctl) done(msg string) {
	if cl.jsonOut {
		outputJSON(map[string]bool{"ok": true})
		return
	}
	fmt.Println(msg)
}

func (cl *ctl) status(ctx context.Context) error {
	resp, err := cl.c.GetStatus(ctx)
	if err != nil {
		return statusOffline(cl.profile, err, cl.jsonOut)
	}
	if cl.jsonOut {
		outputJSON(resp)
		return nil
	}
	fmt.Printf("Profile: %s\n", resp.Profile)
	fmt.Printf("Status:  %s\n", resp.Status)
	fmt.Printf("Uptime:  %s\n", (time.Duration(resp.UptimeMs) * time.Millisecond).Truncate(time.Second))
	if resp.Username != "" {
		fmt.Printf("User:    %s (%d)\n", resp.Username, resp.UserID)
	}
	if resp.GroupID != 0 {
		fmt.Printf("Group:   %d (joined: %v)\n", resp.GroupID, resp.IsJoined)
		fmt.Printf("Cached:  %d messages\n", resp.CachedMessages)
	}
	return nil
}

func (cl *ctl) join(ctx context.Context, id int64) error {
	resp, err := cl.c.JoinRoom(ctx, id)
	if err != nil {
		return err
	}
	if cl.jsonOut {
		outputJSON(resp)
		return nil
	}
	if resp.Joined {
		fmt.Printf("Joined group %d\n", resp.GroupID)
	} else {
		fmt.Printf("Group %d remembered: %s\n", resp.GroupID, resp.Message)
	}
	return nil
}

func (cl *ctl) room(ctx context.Context) error {
	resp, err := cl.c.GetRoom(ctx)
	if err != nil {
		return err
	}
	if cl.jsonOut {
		outputJSON(resp)
		return nil
	}
	r := resp.Room
	if r.CurrentGroupID == 0 {
		fmt.Println("No active room.")
		return nil
	}
	fmt.Printf("Group %d  joined=%v  members=%d  messages=%d  more=%v\n",
		r.CurrentGroupID, r.IsJoined, len(r.ActiveMembers), len(r.Messages), r.HasMoreMessages)
	if r.LastFetchError != "" {
		fmt.Printf("Last fetch error: %s\n", r.LastFetchError)
	}
	for _, m := range r.Messages {
		printMessage(m)
	}
	for _, t := range r.TypingUsers {
		fmt.Printf("  %s is typing...\n", t.Username)
	}
	return nil
}

func (cl *ctl) more(ctx context.Context) error {
	resp, err := cl.c.LoadMore(ctx, 0)
	if err != nil {
		return err
	}
	if cl.jsonOut {
		outputJSON(resp)
		return nil
	}
	if resp.Error != "" {
		return fmt.Errorf("fetch failed: %s", resp.Error)
	}
	fmt.Printf("Loaded %d older messages (more: %v)\n", resp.Added, resp.HasMore)
	return nil
}

type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

func (cl *ctl) send(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	reply := fs.Int64("reply", 0, "message id to reply to")
	var attach stringList
	fs.Var(&attach, "attach", "file to upload and attach (repeatable)")
	if err := fs.Parse(args); err != nil {
		return usageError("send [-reply ID] [-attach FILE]... <text>")
	}
	text := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(text) == "" && len(attach) == 0 {
		return usageError("send [-reply ID] [-attach FILE]... <text>")
	}

	req := &api.SendMessageRequest{Content: text}
	if *reply > 0 {
		req.ReplyToID = reply
	}
	if len(attach) > 0 {
		up, err := cl.c.Upload(ctx, attach)
		if err != nil {
			return err
		}
		for _, r := range up.Results {
			if r.Attachment == nil {
				return fmt.Errorf("upload %s: %s", r.FileName, r.Error)
			}
			req.Attachments = append(req.Attachments, *r.Attachment)
		}
	}
	if err := cl.c.SendMessage(ctx, req); err != nil {
		return err
	}
	cl.done("Sent")
	return nil
}

func (cl *ctl) history(ctx context.Context, limit int) error {
	resp, err := cl.c.History(ctx, &api.HistoryRequest{Limit: limit})
	if err != nil {
		return err
	}
	if cl.jsonOut {
		outputJSON(resp)
		return nil
	}
	if len(resp.Messages) == 0 {
		fmt.Println("No cached messages.")
		return nil
	}
	// Oldest first, like a chat window.
	for i := len(resp.Messages) - 1; i >= 0; i-- {
		printMessage(resp.Messages[i])
	}
	if resp.HasMore {
		fmt.Println("(older messages cached; raise N to see them)")
	}
	return nil
}

func (cl *ctl) upload(ctx context.Context, paths []string) error {
	resp, err := cl.c.Upload(ctx, paths)
	if err != nil {
		return err
	}
	if cl.jsonOut {
		outputJSON(resp)
		return nil
	}
	failed := 0
	for _, r := range resp.Results {
		if r.Attachment != nil {
			fmt.Printf("%-30s %s %s\n", r.FileName, r.Attachment.Type, r.Attachment.URL)
		} else {
			failed++
			fmt.Printf("%-30s FAILED %s\n", r.FileName, r.Error)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(resp.Results))
	}
	return nil
}

func (cl *ctl) uploads(ctx context.Context) error {
	resp, err := cl.c.ListUploads(ctx, 0)
	if err != nil {
		return err
	}
	if cl.jsonOut {
		outputJSON(resp)
		return nil
	}
	for _, a := range resp.Active {
		fmt.Printf("* %-28s %-9s %3d%%\n", a.FileName, a.Status, a.Percent)
	}
	if len(resp.Uploads) == 0 {
		fmt.Println("No uploads recorded.")
		return nil
	}
	for _, u := range resp.Uploads {
		line := fmt.Sprintf("%s  %-28s %-9s %s", time.UnixMilli(u.CreatedAt).Format("2006-01-02 15:04"), u.FileName, u.Status, u.Kind)
		if u.ErrorMessage != "" {
			line += "  " + u.ErrorMessage
		}
		fmt.Println(line)
	}
	return nil
}

func (cl *ctl) clearUploads(ctx context.Context) error {
	resp, err := cl.c.ClearUploads(ctx)
	if err != nil {
		return err
	}
	if cl.jsonOut {
		outputJSON(resp)
		return nil
	}
	fmt.Printf("Cleared %d finished upload(s), %d still in progress\n", resp.Cleared, len(resp.Active))
	return nil
}

func (cl *ctl) watch(ctx context.Context, prefix string) error {
	w, err := cl.c.WatchEvents(ctx, prefix)
	if err != nil {
		return err
	}
	for {
		env, err := w.Recv()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if cl.jsonOut {
			outputJSON(env)
			continue
		}
		fmt.Printf("%s %-28s %s\n", time.UnixMilli(env.OccurredAtUnixMs).Format("15:04:05.000"), env.Kind, env.Payload)
	}
}

func printMessage(m groupchat.GroupMessage) {
	name := m.Sender.Username
	if name == "" {
		name = strconv.FormatInt(m.SenderID, 10)
	}
	fmt.Printf("[%d] %s: %s\n", m.ID, name, m.Content)
	for _, a := range m.Attachments {
		fmt.Printf("      + %s %s\n", a.Type, a.Name)
	}
}
