package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
	scan "signal_bot/internal/scanner"
	"signal_bot/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Scanner — ручные и авто сканы, топ движений.
type Scanner interface {
	ScanUniverse(ctx context.Context, profile string, dest int64) (*models.ScanStats, error)
	Scanning() bool
	Profiles() []string
	Profile(name string) (models.Profile, bool)
	LastStats() *models.ScanStats
	Movers(ctx context.Context, cfg scan.MoversConfig) ([]scan.MoverReport, error)
}

type Watcher interface {
	Enable()
	Disable()
	Focus(ctx context.Context, symbol string) error
	Add(ctx context.Context, symbol string) error
	Remove(symbol string) error
	List() []string
	Status() scan.MonitorStatus
}

type AutoScanner interface {
	Start(parent context.Context, profile string) error
	Stop() bool
	Running() (string, bool)
}

type History interface {
	Recent(ctx context.Context, limit int) ([]models.Alert, error)
}

// counter — журнал, умеющий считать алерты за период.
type counter interface {
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

// Replier — куда отвечать на команды.
type Replier interface {
	Send(ctx context.Context, chatID int64, text string) error
}

type Settings struct {
	DefaultProfile string
	StrictProfile  string
	StochProfile   string
	AutoProfile    string
	AutoInterval   time.Duration
	Movers         scan.MoversConfig
	HistorySize    int
	Quote          string
}

type Deps struct {
	Scanner  Scanner
	Monitor  Watcher
	Auto     AutoScanner
	History  History
	Replier  Replier
	Settings Settings
}

// Telegram — командная поверхность бота.
type Telegram struct {
	bot      *tgbot.BotAPI
	scanner  Scanner
	monitor  Watcher
	auto     AutoScanner
	history  History
	out      Replier
	settings Settings

	wg    sync.WaitGroup
	spawn func(fn func())
}

func NewTelegram(bot *tgbot.BotAPI, deps Deps) *Telegram {
	t := &Telegram{
		bot:      bot,
		scanner:  deps.Scanner,
		monitor:  deps.Monitor,
		auto:     deps.Auto,
		history:  deps.History,
		out:      deps.Replier,
		settings: deps.Settings,
	}
	t.spawn = func(fn func()) {
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			fn()
		}()
	}
	return t
}

// Start читает апдейты, пока не отменён ctx. Без бота сразу выходит.
func (t *Telegram) Start(ctx context.Context) error {
	if t.bot == nil {
		logger.Info("[TG] no bot, commands disabled")
		return nil
	}
	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(ctx, update)
		}
	}
}

// Stop ждёт фоновые сканы, ctx которых уже отменён.
func (t *Telegram) Stop() {
	if t.bot != nil {
		t.bot.StopReceivingUpdates()
	}
	t.wg.Wait()
}

func (t *Telegram) handleUpdate(ctx context.Context, update tgbot.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}
	t.dispatch(ctx, msg.Chat.ID, msg.Command(), msg.CommandArguments())
}

func (t *Telegram) dispatch(ctx context.Context, chatID int64, cmd, args string) {
	logger.Debug("[TG] chat=%d /%s %s", chatID, cmd, args)
	switch strings.ToLower(cmd) {
	case "start", "help":
		t.reply(ctx, chatID, helpText)
	case "on":
		t.monitor.Enable()
		t.reply(ctx, chatID, "🟢 Монитор ВКЛ")
	case "off":
		t.monitor.Disable()
		t.reply(ctx, chatID, "🔴 Монитор ВЫКЛ")
	case "signalmonitor":
		t.handleSignalMonitor(ctx, chatID, firstArg(args))
	case "addcoin":
		t.handleAddCoin(ctx, chatID, firstArg(args))
	case "delcoin":
		t.handleDelCoin(ctx, chatID, firstArg(args))
	case "listcoin":
		t.reply(ctx, chatID, formatWatchlist(t.monitor.List()))
	case "status":
		t.handleStatus(ctx, chatID)
	case "scan":
		profile := firstArg(args)
		if profile == "" {
			profile = t.settings.DefaultProfile
		}
		t.startScan(ctx, chatID, profile)
	case "scan_strict":
		t.startScan(ctx, chatID, t.settings.StrictProfile)
	case "stoch":
		t.startScan(ctx, chatID, t.settings.StochProfile)
	case "autostart":
		t.handleAutoStart(ctx, chatID, firstArg(args))
	case "autostop":
		if t.auto.Stop() {
			t.reply(ctx, chatID, "⏹ Авто-скан остановлен")
		} else {
			t.reply(ctx, chatID, "Авто-скан не запущен")
		}
	case "movers":
		t.handleMovers(ctx, chatID)
	case "history":
		t.handleHistory(ctx, chatID, intArg(firstArg(args), t.settings.HistorySize))
	case "profiles":
		t.reply(ctx, chatID, formatProfiles(t.profiles(), t.settings.DefaultProfile))
	default:
		t.reply(ctx, chatID, "Неизвестная команда, см. /help")
	}
}

const helpText = "🤖 Signal bot\n\n" +
	"/on, /off — монитор вотчлиста\n" +
	"/signalmonitor on|off|<coin> — монитор всех или одной монеты\n" +
	"/addcoin <coin>, /delcoin <coin>, /listcoin — вотчлист\n" +
	"/scan [profile] — скан топа по объёму\n" +
	"/scan_strict — строгий EMA скан\n" +
	"/stoch — стохастик OB/OS\n" +
	"/autostart [profile], /autostop — скан по расписанию\n" +
	"/movers — топ движений за 24h\n" +
	"/history [n] — последние алерты\n" +
	"/profiles — профили\n" +
	"/status — статус"

func (t *Telegram) reply(ctx context.Context, chatID int64, text string) {
	if err := t.out.Send(ctx, chatID, text); err != nil {
		logger.Warn("[TG] reply to %d failed: %v", chatID, err)
	}
}

func (t *Telegram) symbol(raw string) string {
	return helper.NormSymbol(raw, t.settings.Quote)
}

func (t *Telegram) handleSignalMonitor(ctx context.Context, chatID int64, arg string) {
	switch strings.ToLower(arg) {
	case "", "on":
		t.monitor.Enable()
		t.reply(ctx, chatID, "🟢 Монитор ВКЛ (весь вотчлист)")
	case "off":
		t.monitor.Disable()
		t.reply(ctx, chatID, "🔴 Монитор ВЫКЛ")
	default:
		sym := t.symbol(arg)
		if err := t.monitor.Focus(ctx, sym); err != nil {
			t.reply(ctx, chatID, coinError(sym, err))
			return
		}
		t.reply(ctx, chatID, fmt.Sprintf("🟢 Монитор ВКЛ: только %s", sym))
	}
}

func (t *Telegram) handleAddCoin(ctx context.Context, chatID int64, arg string) {
	if arg == "" {
		t.reply(ctx, chatID, "Формат: /addcoin BTC")
		return
	}
	sym := t.symbol(arg)
	if err := t.monitor.Add(ctx, sym); err != nil {
		t.reply(ctx, chatID, coinError(sym, err))
		return
	}
	t.reply(ctx, chatID, fmt.Sprintf("✅ %s добавлен", sym))
}

func (t *Telegram) handleDelCoin(ctx context.Context, chatID int64, arg string) {
	if arg == "" {
		t.reply(ctx, chatID, "Формат: /delcoin BTC")
		return
	}
	sym := t.symbol(arg)
	if err := t.monitor.Remove(sym); err != nil {
		t.reply(ctx, chatID, coinError(sym, err))
		return
	}
	t.reply(ctx, chatID, fmt.Sprintf("🗑️ %s удалён", sym))
}

func coinError(sym string, err error) string {
	switch {
	case errors.Is(err, scan.ErrAlreadyWatched):
		return fmt.Sprintf("ℹ️ %s уже в вотчлисте", sym)
	case errors.Is(err, scan.ErrNotWatched):
		return fmt.Sprintf("ℹ️ %s нет в вотчлисте", sym)
	case errors.Is(err, scan.ErrUnknownSymbol):
		return fmt.Sprintf("❌ %s не торгуется на бирже", sym)
	default:
		return fmt.Sprintf("⚠️ %s: %v", sym, err)
	}
}

func (t *Telegram) handleStatus(ctx context.Context, chatID int64) {
	profile, on := t.auto.Running()
	v := statusView{
		Monitor:     t.monitor.Status(),
		AutoProfile: profile,
		AutoOn:      on,
		Scanning:    t.scanner.Scanning(),
		Last:        t.scanner.LastStats(),
		Daily:       -1,
	}
	if c, ok := t.history.(counter); ok {
		n, err := c.CountSince(ctx, time.Now().Add(-24*time.Hour))
		if err != nil {
			logger.Warn("[TG] count alerts: %v", err)
		} else {
			v.Daily = n
		}
	}
	t.reply(ctx, chatID, formatStatus(v))
}

// startScan — скан в фоне, дайджест и прогресс приходят в тот же чат.
func (t *Telegram) startScan(ctx context.Context, chatID int64, profile string) {
	p, ok := t.scanner.Profile(profile)
	if !ok {
		t.reply(ctx, chatID, fmt.Sprintf("❌ Нет профиля %q\n\n%s", profile,
			formatProfiles(t.profiles(), t.settings.DefaultProfile)))
		return
	}
	if t.scanner.Scanning() {
		t.reply(ctx, chatID, "⛔ Скан уже идёт")
		return
	}

	t.reply(ctx, chatID, fmt.Sprintf("🔍 Скан %s запущен (TF %s)", p.Name, strings.Join(p.Timeframes, ", ")))
	t.spawn(func() {
		_, err := t.scanner.ScanUniverse(ctx, profile, chatID)
		switch {
		case err == nil, ctx.Err() != nil:
		case errors.Is(err, scan.ErrScanInProgress):
			t.reply(ctx, chatID, "⛔ Скан уже идёт")
		default:
			logger.Error("[TG] scan %s failed: %v", profile, err)
			t.reply(ctx, chatID, fmt.Sprintf("❌ Скан %s прерван: %v", profile, err))
		}
	})
}

func (t *Telegram) handleAutoStart(ctx context.Context, chatID int64, profile string) {
	if profile == "" {
		profile = t.settings.AutoProfile
	}
	err := t.auto.Start(ctx, profile)
	switch {
	case err == nil:
		t.reply(ctx, chatID, fmt.Sprintf("▶️ Авто-скан %s каждые %s", profile, t.settings.AutoInterval))
	case errors.Is(err, scan.ErrAutoScanRunning):
		running, _ := t.auto.Running()
		t.reply(ctx, chatID, fmt.Sprintf("ℹ️ Авто-скан уже идёт (%s), сначала /autostop", running))
	case errors.Is(err, scan.ErrUnknownProfile):
		t.reply(ctx, chatID, fmt.Sprintf("❌ Нет профиля %q", profile))
	default:
		t.reply(ctx, chatID, fmt.Sprintf("⚠️ Авто-скан: %v", err))
	}
}

func (t *Telegram) handleMovers(ctx context.Context, chatID int64) {
	t.reply(ctx, chatID, "⏳ Считаю движения...")
	t.spawn(func() {
		reports, err := t.scanner.Movers(ctx, t.settings.Movers)
		if err != nil && len(reports) == 0 {
			if ctx.Err() == nil {
				t.reply(ctx, chatID, fmt.Sprintf("❌ Движения недоступны: %v", err))
			}
			return
		}
		t.reply(ctx, chatID, formatMovers(reports))
	})
}

func (t *Telegram) handleHistory(ctx context.Context, chatID int64, limit int) {
	if t.history == nil {
		t.reply(ctx, chatID, "Журнал отключён")
		return
	}
	alerts, err := t.history.Recent(ctx, limit)
	if err != nil {
		logger.Error("[TG] history: %v", err)
		t.reply(ctx, chatID, "⚠️ Журнал недоступен")
		return
	}
	t.reply(ctx, chatID, formatHistory(alerts))
}

func (t *Telegram) profiles() []models.Profile {
	names := t.scanner.Profiles()
	out := make([]models.Profile, 0, len(names))
	for _, n := range names {
		if p, ok := t.scanner.Profile(n); ok {
			out = append(out, p)
		}
	}
	return out
}
