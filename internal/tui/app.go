package tui

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/gchat/internal/api"
	"github.com/matheus3301/gchat/internal/tui/keys"
	"github.com/matheus3301/gchat/internal/tui/model"
	"github.com/matheus3301/gchat/internal/tui/ui"
	"github.com/matheus3301/gchat/internal/tui/views"
	"github.com/matheus3301/gchat/internal/upload"
	"github.com/rivo/tview"
)

const (
	pageRoom    = "room"
	pageUploads = "uploads"
	pageHelp    = "help"

	callTimeout = 10 * time.Second
)

// Backend is what the TUI needs from the daemon. *api.Client implements it.
type Backend interface {
	model.Daemon
	WatchEvents(ctx context.Context, prefix string) (*api.EventWatcher, error)
}

// App is the main TUI application shell.
type App struct {
	app       *tview.Application
	root      *tview.Flex
	pages     *tview.Pages
	vm        *model.ViewModel
	backend   Backend
	registry  *keys.Registry
	theme     *ui.Theme
	prompt    *ui.Prompt
	statusBar *views.StatusBar
	thread    *views.MessageThread
	members   *views.MemberList
	uploads   *views.UploadList
	help      *views.HelpView
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(b Backend, profileName string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:       tview.NewApplication(),
		pages:     tview.NewPages(),
		vm:        model.NewViewModel(b),
		backend:   b,
		registry:  keys.NewRegistry(),
		theme:     theme,
		prompt:    ui.NewPrompt(theme),
		statusBar: views.NewStatusBar(theme),
		thread:    views.NewMessageThread(theme),
		members:   views.NewMemberList(theme),
		uploads:   views.NewUploadList(theme),
		help:      views.NewHelpView(theme),
		ctx:       ctx,
		cancel:    cancel,
	}

	a.statusBar.SetProfile(profileName)
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	a.statusBar.SetHints(a.registry.Hints(pageRoom))

	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'q',
		Description: "q:quit", Visible: true,
		Handler: a.Stop,
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: ':',
		Description: "::cmd", Visible: true,
		Handler: func() { a.showPrompt(ui.PromptCommand) },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: '?',
		Description: "?:help", Visible: true,
		Handler: func() { a.switchTo(pageHelp, a.help) },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'u',
		Description: "u:uploads", Visible: true,
		Handler: func() { a.switchTo(pageUploads, a.uploads) },
	})

	a.registry.AddView(pageUploads, &keys.Action{
		Key: tcell.KeyRune, Rune: 'c',
		Description: "c:clear finished", Visible: true,
		Handler: func() {
			a.async(func(ctx context.Context) {
				_ = a.vm.ClearUploads(ctx)
				a.refresh(model.Refresh{Flash: true, Uploads: true})
			})
		},
	})
	a.registry.AddView(pageRoom, &keys.Action{
		Key: tcell.KeyRune, Rune: 'i',
		Description: "i:compose", Visible: true,
		Handler: func() { a.app.SetFocus(a.thread.Composer()) },
	})
	a.registry.AddView(pageRoom, &keys.Action{
		Key: tcell.KeyRune, Rune: 'm',
		Description: "m:older", Visible: true,
		Handler: a.loadMore,
	})
	a.registry.AddView(pageRoom, &keys.Action{
		Key: tcell.KeyRune, Rune: 'a',
		Description: "a:attach", Visible: true,
		Handler: func() { a.showPrompt(ui.PromptAttach) },
	})
}

func (a *App) setupCallbacks() {
	a.thread.SetOnSend(func(text string) {
		a.async(func(ctx context.Context) {
			if a.vm.Send(ctx, text) == nil {
				a.app.QueueUpdateDraw(func() { a.thread.SetPending(0) })
			}
		})
	})
	a.thread.SetOnTyping(func(typing bool) {
		a.async(func(ctx context.Context) { a.vm.SetTyping(ctx, typing) })
	})

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptAttach:
			a.attach(ParseCommand("attach " + text).Paths())
		default:
			a.runCommand(ParseCommand(text))
		}
	})
	a.prompt.SetOnCancel(a.hidePrompt)
}

func (a *App) setupLayout() {
	body := tview.NewFlex().
		AddItem(a.thread, 0, 3, true).
		AddItem(a.members, 28, 0, false)

	a.pages.AddPage(pageRoom, body, true, true)
	a.pages.AddPage(pageUploads, a.uploads, true, false)
	a.pages.AddPage(pageHelp, a.help, true, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(a.root, true)
	a.app.SetFocus(a.thread.Messages())

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		currentPage, _ := a.pages.GetFrontPage()
		focused := a.app.GetFocus()

		if event.Key() == tcell.KeyEscape && focused != a.prompt.InputField {
			if focused == a.thread.Composer() {
				a.app.SetFocus(a.thread.Messages())
				return nil
			}
			if currentPage != pageRoom {
				a.switchTo(pageRoom, a.thread.Messages())
				return nil
			}
		}

		// Text inputs get every other key.
		if _, ok := focused.(*tview.InputField); ok {
			return event
		}

		if a.registry.HandleEvent(currentPage, event) {
			return nil
		}
		return event
	})
}

func (a *App) switchTo(page string, focus tview.Primitive) {
	a.pages.SwitchToPage(page)
	a.app.SetFocus(focus)
	a.statusBar.SetHints(a.registry.Hints(page))
}

func (a *App) showPrompt(mode ui.PromptMode) {
	a.prompt.Activate(mode)
	a.root.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.root.ResizeItem(a.prompt, 0, 0)
	a.app.SetFocus(a.thread.Messages())
}

func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case "join", "j":
		id, err := cmd.GroupID()
		if err != nil {
			a.vm.Flash.SetLevel(err.Error(), model.LevelError, 5*time.Second)
			a.renderFlash()
			return
		}
		a.async(func(ctx context.Context) {
			_ = a.vm.Join(ctx, id)
			a.refresh(model.Refresh{Room: true, Status: true, Flash: true})
		})
	case "leave":
		a.async(func(ctx context.Context) {
			_ = a.vm.Leave(ctx)
			a.refresh(model.Refresh{Room: true, Status: true, Flash: true})
		})
	case "more":
		a.loadMore()
	case "attach":
		a.attach(cmd.Paths())
	case "uploads":
		a.switchTo(pageUploads, a.uploads)
	case "help", "h":
		a.switchTo(pageHelp, a.help)
	case "quit", "q":
		a.Stop()
	default:
		a.vm.Flash.SetLevel("Unknown command: "+cmd.Name, model.LevelError, 5*time.Second)
		a.renderFlash()
	}
}

func (a *App) loadMore() {
	a.async(func(ctx context.Context) {
		_ = a.vm.LoadMore(ctx)
		a.refresh(model.Refresh{Room: true, Flash: true})
	})
}

func (a *App) attach(paths []string) {
	if len(paths) == 0 {
		return
	}
	// Uploads run for as long as the files take, not callTimeout.
	go func() {
		_ = a.vm.Upload(a.ctx, paths)
		a.refresh(model.Refresh{Uploads: true, Flash: true})
	}()
}

// async runs fn off the UI goroutine with a per-call deadline.
func (a *App) async(fn func(ctx context.Context)) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// refresh reloads the invalidated state and redraws. It must not run on the
// UI goroutine.
func (a *App) refresh(r model.Refresh) {
	ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
	defer cancel()

	if r.Status {
		_ = a.vm.LoadStatus(ctx)
	}
	if r.Room {
		if a.vm.LoadRoom(ctx) == nil {
			a.vm.MarkLatestSeen(ctx)
		}
	}
	if r.Uploads {
		_ = a.vm.LoadUploads(ctx)
	}

	a.app.QueueUpdateDraw(func() {
		st := a.vm.Status()
		if r.Status {
			a.statusBar.SetStatus(st)
		}
		if r.Room {
			var me int64
			if st != nil {
				me = st.UserID
			}
			room := a.vm.Room()
			a.thread.Update(room, me)
			a.thread.SetPending(len(a.vm.Pending()))
			a.members.Update(room.ActiveMembers, room.TypingUsers)
		}
		if r.Uploads {
			items := a.vm.Uploads()
			a.uploads.Update(items)
			a.statusBar.SetUploading(countActive(items))
			a.thread.SetPending(len(a.vm.Pending()))
		}
		a.renderFlash()
	})
}

func (a *App) renderFlash() {
	msg, level := a.vm.Flash.Get()
	a.statusBar.SetFlash(msg, level == model.LevelError)
}

func countActive(items []upload.FileProgress) int {
	n := 0
	for _, it := range items {
		if it.Status == upload.StatusQueued || it.Status == upload.StatusUploading {
			n++
		}
	}
	return n
}

// watch applies daemon events until the context ends, re-subscribing after
// stream errors.
func (a *App) watch() {
	for a.ctx.Err() == nil {
		w, err := a.backend.WatchEvents(a.ctx, "")
		if err == nil {
			err = a.consume(w)
		}
		if a.ctx.Err() != nil {
			return
		}
		a.vm.Flash.SetLevel("Event stream lost, retrying...", model.LevelError, 5*time.Second)
		a.refresh(model.Refresh{Flash: true})
		select {
		case <-time.After(2 * time.Second):
		case <-a.ctx.Done():
			return
		}
		a.refresh(model.Refresh{Room: true, Status: true, Uploads: true})
	}
}

func (a *App) consume(w *api.EventWatcher) error {
	for {
		env, err := w.Recv()
		if err != nil {
			return err
		}
		if r := a.vm.ApplyEvent(env); r != (model.Refresh{}) {
			a.refresh(r)
		}
	}
}

// flashTicker clears expired flash messages.
func (a *App) flashTicker() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.app.QueueUpdateDraw(a.renderFlash)
		case <-a.ctx.Done():
			return
		}
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	go func() {
		a.refresh(model.Refresh{Room: true, Status: true, Uploads: true})
		go a.flashTicker()
		a.watch()
	}()

	return a.app.Run()
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
