package main

import (
	"context"
	"fmt"
	"image/color"
	"log"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/wricardo/adventure-games/client"
	"github.com/wricardo/adventure-games/game/engine"
	"github.com/wricardo/adventure-games/game/home"
	"github.com/wricardo/adventure-games/game/service"
)

const (
	dragSendInterval = 40 * time.Millisecond
	cueDuration      = 1200 * time.Millisecond
	pollInterval     = time.Second

	// debug font cell
	glyphWidth  = 6
	glyphHeight = 16
)

// ScreenType represents different screens in the app
type ScreenType int

const (
	ScreenHome ScreenType = iota
	ScreenGame
)

var (
	backgroundColor = color.RGBA{240, 244, 255, 255}
	tileColor       = color.RGBA{59, 130, 246, 255}
	tileHeldColor   = color.RGBA{96, 165, 250, 255}
	tileCorrect     = color.RGBA{0, 128, 0, 255}
	hoverColor      = color.RGBA{250, 204, 21, 255}
	buttonColor     = color.RGBA{71, 85, 105, 255}
	overlayColor    = color.RGBA{0, 0, 0, 170}
	disabledColor   = color.RGBA{156, 163, 175, 255}
)

// button is a clickable rectangle
type button struct {
	label string
	rect  engine.Rect
}

func (b button) hit(p engine.Point) bool { return b.rect.Contains(p) }

var (
	backButton  = button{"< Home", engine.Rect{X: 16, Y: 16, W: 80, H: 28}}
	resetButton = button{"Reset", engine.Rect{X: screenWidth - 96, Y: 16, W: 80, H: 28}}
	retryButton = button{"Play Again", engine.Rect{X: screenWidth/2 - 130, Y: 330, W: 120, H: 36}}
	homeButton  = button{"Home", engine.Rect{X: screenWidth/2 + 10, Y: 330, W: 120, H: 36}}
)

// Game represents the desktop game client
type Game struct {
	api    *client.Client
	nav    *home.Navigator
	screen ScreenType

	mu           sync.RWMutex
	view         *client.BoardView
	buttonColor  color.RGBA
	instructions string
	cue          string
	cueAt        time.Time
	errorMsg     string

	actions      chan func(ctx context.Context) error
	stopSession  context.CancelFunc
	lastDragSent time.Time
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewGame loads the home menu and, when sessionID is set, joins that session
func NewGame(serverURL, sessionID string) (*Game, error) {
	ctx, cancel := context.WithCancel(context.Background())
	g := &Game{
		api:     client.New(serverURL),
		screen:  ScreenHome,
		actions: make(chan func(ctx context.Context) error, 64),
		ctx:     ctx,
		cancel:  cancel,
	}
	go g.runActions()

	menu, err := g.api.HomeMenu(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	g.nav = home.NewNavigator(menuFrom(menu))

	if sessionID != "" {
		info, err := g.api.Resume(ctx, sessionID)
		if err != nil {
			cancel()
			return nil, err
		}
		g.enterSession(info)
	}
	return g, nil
}

// menuFrom rebuilds the navigator's menu from the server's cards
func menuFrom(m *service.HomeMenu) *home.Menu {
	menu := &home.Menu{Title: m.Title, Subtitle: m.Subtitle}
	for _, entry := range m.Games {
		menu.Buttons = append(menu.Buttons, entry.GameButton)
	}
	return menu
}

// Close stops background work
func (g *Game) Close() {
	g.leaveSession()
	g.cancel()
}

// runActions performs server calls one at a time so pointer events reach
// the server in order without stalling the frame loop
func (g *Game) runActions() {
	for {
		select {
		case <-g.ctx.Done():
			return
		case action := <-g.actions:
			if err := action(g.ctx); err != nil {
				log.Printf("Action failed: %v", err)
				g.setError(err.Error())
			}
		}
	}
}

func (g *Game) enqueue(action func(ctx context.Context) error) {
	select {
	case g.actions <- action:
	default:
		log.Printf("Action queue full, dropping action")
	}
}

func (g *Game) setError(msg string) {
	g.mu.Lock()
	g.errorMsg = msg
	g.mu.Unlock()
}

func (g *Game) playCue(cue string) {
	if cue == "" {
		return
	}
	g.mu.Lock()
	g.cue, g.cueAt = cue, time.Now()
	g.mu.Unlock()
}

func (g *Game) stopCue() {
	g.mu.Lock()
	g.cue = ""
	g.mu.Unlock()
}

func (g *Game) currentView() *client.BoardView {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.view
}

// apply installs a server state and plays any sound cues that came with it
func (g *Game) apply(state *engine.GameState, events []service.GameEvent) {
	if view := g.currentView(); view != nil {
		view.Apply(state)
	}
	for _, ev := range events {
		if ev.StopSounds {
			g.stopCue()
		}
		g.playCue(ev.Cue)
	}
}

// startGame opens the scene behind a home card
func (g *Game) startGame(scene string) {
	card, err := g.nav.Select(scene)
	if err != nil {
		g.setError(err.Error())
		return
	}
	info, err := g.api.CreateSession(g.ctx, card.ConfigID)
	if err != nil {
		g.nav.Back()
		g.setError(err.Error())
		return
	}
	log.Printf("Created new session: %s (config: %s)", info.ID, card.ConfigID)
	g.enterSession(info)
}

func (g *Game) enterSession(info *service.SessionInfo) {
	view := client.NewBoardView(g.api.Layout())
	view.Apply(info.GameState)

	r, gr, b := tileColor.R, tileColor.G, tileColor.B
	if card, ok := g.nav.Menu().FindByConfig(info.ConfigName); ok {
		r, gr, b = card.RGB()
	}

	g.mu.Lock()
	g.view = view
	g.buttonColor = color.RGBA{r, gr, b, 255}
	g.instructions = ""
	if info.GameConfig != nil {
		g.instructions = info.GameConfig.Messages.Instructions
	}
	g.errorMsg = ""
	g.mu.Unlock()

	ctx, stop := context.WithCancel(g.ctx)
	g.stopSession = stop
	go g.follow(ctx)
	g.screen = ScreenGame
}

// follow keeps the view current from the websocket, falling back to polling
func (g *Game) follow(ctx context.Context) {
	frames, err := g.api.Subscribe(ctx)
	if err != nil {
		log.Printf("WebSocket unavailable (%v), falling back to polling", err)
		g.poll(ctx)
		return
	}
	for msg := range frames {
		if msg.GameState != nil {
			g.apply(msg.GameState, msg.Events)
		}
	}
}

func (g *Game) poll(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := g.api.Tick(ctx)
			if err != nil {
				continue
			}
			state, err := g.api.GetState(ctx)
			if err == nil {
				g.apply(state, result.Events)
			}
		}
	}
}

func (g *Game) leaveSession() {
	if g.stopSession != nil {
		g.stopSession()
		g.stopSession = nil
	}
}

// goHome returns to the menu; sounds stop with the scene
func (g *Game) goHome() {
	g.leaveSession()
	g.nav.Back()
	g.mu.Lock()
	g.view = nil
	g.mu.Unlock()
	g.stopCue()
	g.screen = ScreenHome
}

func (g *Game) reset() {
	g.enqueue(func(ctx context.Context) error {
		state, err := g.api.Reset(ctx)
		if err != nil {
			return err
		}
		g.apply(state, nil)
		return nil
	})
}

func cursor() engine.Point {
	x, y := ebiten.CursorPosition()
	return engine.Point{X: float64(x), Y: float64(y)}
}

// Update updates game logic
func (g *Game) Update() error {
	switch g.screen {
	case ScreenHome:
		g.updateHome()
	case ScreenGame:
		g.updateGame()
	}
	return nil
}

// cardRect places home card i
func cardRect(i int) engine.Rect {
	const w, h, gap = 300.0, 180.0, 40.0
	x := screenWidth/2 - w - gap/2 + float64(i%2)*(w+gap)
	y := 200 + float64(i/2)*(h+gap)
	return engine.Rect{X: x, Y: y, W: w, H: h}
}

func (g *Game) updateHome() {
	if !inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		return
	}
	p := cursor()
	for i, card := range g.nav.Menu().Buttons {
		if cardRect(i).Contains(p) {
			if card.Available {
				g.startGame(card.Scene)
			}
			return
		}
	}
}

func (g *Game) updateGame() {
	view := g.currentView()
	if view == nil {
		return
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.goHome()
		return
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.reset()
	}

	p := cursor()
	state := view.State()
	overlay := state != nil && state.Overlay != engine.OverlayNone

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		switch {
		case backButton.hit(p):
			g.goHome()
			return
		case overlay && retryButton.hit(p), !overlay && resetButton.hit(p):
			g.reset()
			return
		case overlay && homeButton.hit(p):
			g.goHome()
			return
		}
		if id, ok := view.Grab(p); ok {
			g.lastDragSent = time.Time{}
			g.enqueue(func(ctx context.Context) error {
				result, err := g.api.DragStart(ctx, id)
				if err != nil {
					return err
				}
				g.apply(result.GameState, result.Events)
				return nil
			})
		}
	}

	if _, held := view.Held(); held && ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		id, pos, _ := view.MoveTo(p)
		if time.Since(g.lastDragSent) >= dragSendInterval {
			g.lastDragSent = time.Now()
			g.enqueue(func(ctx context.Context) error {
				_, err := g.api.DragMove(ctx, id, pos)
				return err
			})
		}
	}

	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		if id, pos, ok := view.Release(); ok {
			g.enqueue(func(ctx context.Context) error {
				if _, err := g.api.DragMove(ctx, id, pos); err != nil {
					return err
				}
				result, err := g.api.DragEnd(ctx, id)
				if err != nil {
					return err
				}
				g.apply(result.GameState, result.Events)
				return nil
			})
		}
	}
}

// Draw renders the current screen
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)
	switch g.screen {
	case ScreenHome:
		g.drawHome(screen)
	case ScreenGame:
		g.drawGame(screen)
	}

	g.mu.RLock()
	errMsg := g.errorMsg
	g.mu.RUnlock()
	if errMsg != "" {
		ebitenutil.DebugPrintAt(screen, "Error: "+errMsg, 16, screenHeight-24)
	}
}

func fillRect(dst *ebiten.Image, r engine.Rect, clr color.Color) {
	vector.DrawFilledRect(dst, float32(r.X), float32(r.Y), float32(r.W), float32(r.H), clr, false)
}

func strokeRect(dst *ebiten.Image, r engine.Rect, width float32, clr color.Color) {
	vector.StrokeRect(dst, float32(r.X), float32(r.Y), float32(r.W), float32(r.H), width, clr, false)
}

// printCentered draws debug text centered in r
func printCentered(dst *ebiten.Image, s string, r engine.Rect) {
	x := r.X + (r.W-float64(len(s)*glyphWidth))/2
	y := r.Y + (r.H-glyphHeight)/2
	ebitenutil.DebugPrintAt(dst, s, int(x), int(y))
}

func drawButton(dst *ebiten.Image, b button) {
	fillRect(dst, b.rect, buttonColor)
	printCentered(dst, b.label, b.rect)
}

func (g *Game) drawHome(screen *ebiten.Image) {
	menu := g.nav.Menu()
	printCentered(screen, menu.Title, engine.Rect{Y: 90, W: screenWidth, H: glyphHeight})
	printCentered(screen, menu.Subtitle, engine.Rect{Y: 120, W: screenWidth, H: glyphHeight})

	for i, card := range menu.Buttons {
		rect := cardRect(i)
		r, gr, b := card.RGB()
		clr := color.Color(color.RGBA{r, gr, b, 255})
		if !card.Available {
			clr = disabledColor
		}
		fillRect(screen, rect, clr)
		printCentered(screen, card.Title, engine.Rect{X: rect.X, Y: rect.Y + 50, W: rect.W, H: glyphHeight})
		printCentered(screen, card.Description, engine.Rect{X: rect.X, Y: rect.Y + 90, W: rect.W, H: glyphHeight})
		if !card.Available {
			printCentered(screen, "Coming soon", engine.Rect{X: rect.X, Y: rect.Y + 130, W: rect.W, H: glyphHeight})
		}
	}
	ebitenutil.DebugPrintAt(screen, "Click a game to start", 16, screenHeight-44)
}

func (g *Game) drawGame(screen *ebiten.Image) {
	view := g.currentView()
	if view == nil {
		return
	}
	state := view.State()
	if state == nil {
		ebitenutil.DebugPrint(screen, "Loading...")
		return
	}

	g.mu.RLock()
	base, instructions := g.buttonColor, g.instructions
	cue, cueAt := g.cue, g.cueAt
	g.mu.RUnlock()

	drawButton(screen, backButton)
	drawButton(screen, resetButton)
	printCentered(screen, instructions, engine.Rect{Y: 60, W: screenWidth, H: glyphHeight})
	ebitenutil.DebugPrintAt(screen, state.TimerText, screenWidth-220, 22)
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("In place: %d/%d", state.CorrectCount, state.TotalTiles), 120, 22)
	if cue != "" && time.Since(cueAt) < cueDuration {
		ebitenutil.DebugPrintAt(screen, "~ "+cue+" ~", screenWidth/2-30, 100)
	}

	layout := view.Layout()
	heldID, held := view.Held()
	hoverID, hovering := view.HoverTarget()
	for _, t := range view.DrawOrder() {
		rect := engine.Rect{X: t.Pos.X, Y: t.Pos.Y, W: layout.TileWidth, H: layout.TileHeight}
		clr := base
		switch {
		case held && t.ID == heldID:
			clr = tileHeldColor
		case t.Correct:
			clr = tileCorrect
		}
		fillRect(screen, rect, clr)
		if hovering && t.ID == hoverID {
			strokeRect(screen, rect, 3, hoverColor)
		}
		printCentered(screen, t.Symbol, rect)
	}

	switch state.Overlay {
	case engine.OverlayWin:
		g.drawOverlay(screen, state.Message, "Time: "+state.FinalTime)
	case engine.OverlayTimeout:
		g.drawOverlay(screen, state.Message, "Keep practicing! You can do it!")
	}
}

func (g *Game) drawOverlay(screen *ebiten.Image, title, detail string) {
	fillRect(screen, engine.Rect{W: screenWidth, H: screenHeight}, overlayColor)
	printCentered(screen, title, engine.Rect{Y: 230, W: screenWidth, H: glyphHeight})
	printCentered(screen, detail, engine.Rect{Y: 270, W: screenWidth, H: glyphHeight})
	drawButton(screen, retryButton)
	drawButton(screen, homeButton)
}

// Layout keeps the logical screen at the size the configs are laid out for
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}
