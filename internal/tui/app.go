package tui

import (
	"context"
	"image"
	"strconv"
	"time"

	"github.com/feedchat/feedchat/internal/bus"
	"github.com/feedchat/feedchat/internal/chat"
	"github.com/feedchat/feedchat/internal/tui/keys"
	"github.com/feedchat/feedchat/internal/tui/model"
	"github.com/feedchat/feedchat/internal/tui/ui"
	"github.com/feedchat/feedchat/internal/tui/views"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Engine is the read side of the sync engine.
type Engine interface {
	Messages() []chat.Message
	FullImage(ctx context.Context, index int) (image.Image, error)
}

// Sender submits the user's messages.
type Sender interface {
	SendText(ctx context.Context, body, sender, recipient string) error
	SendImage(ctx context.Context, source, sender, recipient string) error
}

// Identity is who the user is and who they write to.
type Identity struct {
	Profile   string
	Username  string
	Recipient string
}

// App is the main TUI application shell.
type App struct {
	app       *tview.Application
	pages     *tview.Pages
	vm        *model.ViewModel
	engine    Engine
	sender    Sender
	bus       *bus.Bus
	id        Identity
	registry  *keys.Registry
	statusBar *views.StatusBar
	msgView   *views.MessageView
	composer  *views.Composer
	imageView *views.ImageView
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(engine Engine, sender Sender, b *bus.Bus, id Identity) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:       tview.NewApplication(),
		pages:     tview.NewPages(),
		vm:        model.NewViewModel(engine),
		engine:    engine,
		sender:    sender,
		bus:       b,
		id:        id,
		registry:  keys.NewRegistry(),
		statusBar: views.NewStatusBar(),
		msgView:   views.NewMessageView(theme, id.Username),
		composer:  views.NewComposer(theme),
		imageView: views.NewImageView(theme),
		ctx:       ctx,
		cancel:    cancel,
	}

	a.statusBar.SetProfile(id.Profile)
	a.statusBar.SetStatus(a.vm.GetStatus())
	a.setupBindings()
	a.statusBar.SetHints(a.registry.Hints("chat"))
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal("quit", &keys.Action{
		Rune: 'q', Key: tcell.KeyRune,
		Description: "q:quit", Visible: true,
		Handler: func() { a.Stop() },
	})
	a.registry.AddView("chat", "compose", &keys.Action{
		Rune: 'i', Key: tcell.KeyRune,
		Description: "i:compose", Visible: true,
		Handler: func() { a.app.SetFocus(a.composer) },
	})
}

func (a *App) setupCallbacks() {
	a.composer.SetOnSend(func(text string) {
		cmd := ParseCommand(text)
		go a.run(cmd)
	})
}

// run executes one composer command off the UI goroutine. Outcomes reach the
// screen through bus events.
func (a *App) run(cmd Command) {
	switch cmd.Name {
	case "send":
		_ = a.sender.SendText(a.ctx, cmd.Args, a.id.Username, a.id.Recipient)
	case "image":
		_ = a.sender.SendImage(a.ctx, cmd.Args, a.id.Username, a.id.Recipient)
	case "view":
		a.openImage(cmd.Args)
	case "quit":
		a.Stop()
	default:
		a.flash("Unknown command /" + cmd.Name)
	}
}

func (a *App) openImage(arg string) {
	index, err := strconv.Atoi(arg)
	if err != nil {
		a.flash("Usage: /view <n>")
		return
	}
	img, err := a.engine.FullImage(a.ctx, index)
	if err != nil {
		a.flash("Can't open image: " + err.Error())
		return
	}
	a.app.QueueUpdateDraw(func() {
		a.imageView.Show(img)
		a.pages.SwitchToPage("image")
	})
}

func (a *App) flash(msg string) {
	a.vm.Flash.Set(msg, 5*time.Second)
	a.app.QueueUpdateDraw(func() {
		a.statusBar.SetFlash(a.vm.Flash.Get())
	})
}

func (a *App) setupLayout() {
	chatFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.msgView, 0, 1, false).
		AddItem(a.composer, 1, 0, true)

	a.pages.AddPage("chat", chatFlex, true, true)
	a.pages.AddPage("image", a.imageView, true, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(root, true)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		currentPage, _ := a.pages.GetFrontPage()

		if event.Key() == tcell.KeyEscape {
			if currentPage == "image" {
				a.pages.SwitchToPage("chat")
				a.app.SetFocus(a.composer)
				return nil
			}
			a.app.SetFocus(a.msgView)
			return nil
		}

		// Let text input widgets handle all keys normally.
		if _, ok := a.app.GetFocus().(*tview.InputField); ok {
			return event
		}
		if a.registry.HandleEvent(currentPage, event) {
			return nil
		}
		return event
	})
}

// Run starts the TUI application and blocks until it exits.
func (a *App) Run() error {
	events, unsub := a.bus.Subscribe("", 256)
	defer unsub()

	// The initial load may have happened before we subscribed.
	a.vm.Apply(bus.Event{Kind: bus.KindMessagesLoaded})
	a.msgView.Update(a.vm.GetMessages())

	go a.consume(events)
	go a.tick()
	return a.app.Run()
}

func (a *App) consume(events <-chan bus.Event) {
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			if !a.vm.Apply(evt) {
				continue
			}
			a.app.QueueUpdateDraw(a.redraw)
		case <-a.ctx.Done():
			return
		}
	}
}

// tick expires flash messages and keeps the clock current.
func (a *App) tick() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.app.QueueUpdateDraw(func() {
				a.statusBar.SetFlash(a.vm.Flash.Get())
			})
		case <-a.ctx.Done():
			return
		}
	}
}

func (a *App) redraw() {
	a.msgView.Update(a.vm.GetMessages())
	a.statusBar.SetStatus(a.vm.GetStatus())
	a.statusBar.SetFlash(a.vm.Flash.Get())
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
