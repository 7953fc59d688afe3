package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"signal_bot/internal/models"
	scan "signal_bot/internal/scanner"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type replies struct {
	chats []int64
	texts []string
}

func (r *replies) Send(_ context.Context, chatID int64, text string) error {
	r.chats = append(r.chats, chatID)
	r.texts = append(r.texts, text)
	return nil
}

func (r *replies) last() string {
	if len(r.texts) == 0 {
		return ""
	}
	return r.texts[len(r.texts)-1]
}

type fakeScanner struct {
	profiles map[string]models.Profile
	scanning bool
	scanErr  error
	scans    []string
	dests    []int64
	movers   []scan.MoverReport
}

func (f *fakeScanner) ScanUniverse(_ context.Context, profile string, dest int64) (*models.ScanStats, error) {
	f.scans = append(f.scans, profile)
	f.dests = append(f.dests, dest)
	return nil, f.scanErr
}
func (f *fakeScanner) Scanning() bool { return f.scanning }
func (f *fakeScanner) Profiles() []string {
	return []string{"ema_touch", "stoch"}
}
func (f *fakeScanner) Profile(name string) (models.Profile, bool) {
	p, ok := f.profiles[name]
	return p, ok
}
func (f *fakeScanner) LastStats() *models.ScanStats { return nil }
func (f *fakeScanner) Movers(context.Context, scan.MoversConfig) ([]scan.MoverReport, error) {
	return f.movers, nil
}

type fakeWatcher struct {
	enabled bool
	single  string
	list    []string
	addErr  error
	delErr  error
	added   []string
}

func (f *fakeWatcher) Enable()  { f.enabled, f.single = true, "" }
func (f *fakeWatcher) Disable() { f.enabled = false }
func (f *fakeWatcher) Focus(_ context.Context, symbol string) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.enabled, f.single = true, symbol
	return nil
}
func (f *fakeWatcher) Add(_ context.Context, symbol string) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, symbol)
	return nil
}
func (f *fakeWatcher) Remove(string) error { return f.delErr }
func (f *fakeWatcher) List() []string      { return f.list }
func (f *fakeWatcher) Status() scan.MonitorStatus {
	return scan.MonitorStatus{Enabled: f.enabled, Single: f.single, Watchlist: f.list, Profile: "watch"}
}

type fakeAuto struct {
	profile string
	err     error
}

func (f *fakeAuto) Start(_ context.Context, profile string) error {
	if f.err != nil {
		return f.err
	}
	f.profile = profile
	return nil
}
func (f *fakeAuto) Stop() bool {
	was := f.profile != ""
	f.profile = ""
	return was
}
func (f *fakeAuto) Running() (string, bool) { return f.profile, f.profile != "" }

type fakeHistory struct {
	limit  int
	alerts []models.Alert
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]models.Alert, error) {
	f.limit = limit
	return f.alerts, nil
}

type countingHistory struct {
	fakeHistory
	n int64
}

func (c *countingHistory) CountSince(context.Context, time.Time) (int64, error) {
	return c.n, nil
}

type harness struct {
	tg      *Telegram
	out     *replies
	scanner *fakeScanner
	watcher *fakeWatcher
	auto    *fakeAuto
	history *fakeHistory
}

func newHarness() *harness {
	h := &harness{
		out: &replies{},
		scanner: &fakeScanner{profiles: map[string]models.Profile{
			"ema_touch":        {Name: "ema_touch", Timeframes: []string{"5m"}},
			"ema_touch_strict": {Name: "ema_touch_strict", Timeframes: []string{"5m"}},
			"stoch":            {Name: "stoch", Timeframes: []string{"15m", "1h"}},
		}},
		watcher: &fakeWatcher{list: []string{"BTC_USDT", "ETH_USDT"}},
		auto:    &fakeAuto{},
		history: &fakeHistory{},
	}
	h.tg = NewTelegram(nil, Deps{
		Scanner: h.scanner,
		Monitor: h.watcher,
		Auto:    h.auto,
		History: h.history,
		Replier: h.out,
		Settings: Settings{
			DefaultProfile: "ema_touch",
			StrictProfile:  "ema_touch_strict",
			StochProfile:   "stoch",
			AutoProfile:    "ema_touch",
			HistorySize:    10,
		},
	})
	h.tg.spawn = func(fn func()) { fn() }
	return h
}

func (h *harness) cmd(cmd, args string) {
	h.tg.dispatch(context.Background(), 100, cmd, args)
}

func TestDispatch_OnOff(t *testing.T) {
	h := newHarness()

	h.cmd("on", "")
	assert.True(t, h.watcher.enabled)
	assert.Contains(t, h.out.last(), "ВКЛ")

	h.cmd("off", "")
	assert.False(t, h.watcher.enabled)
	assert.Contains(t, h.out.last(), "ВЫКЛ")
}

func TestDispatch_SignalMonitor(t *testing.T) {
	h := newHarness()

	h.cmd("signalmonitor", "sol")
	assert.True(t, h.watcher.enabled)
	assert.Equal(t, "SOL_USDT", h.watcher.single)
	assert.Contains(t, h.out.last(), "только SOL_USDT")

	h.cmd("signalmonitor", "on")
	assert.Empty(t, h.watcher.single)

	h.cmd("signalmonitor", "OFF")
	assert.False(t, h.watcher.enabled)

	h.watcher.addErr = fmt.Errorf("%w: XXX_USDT", scan.ErrUnknownSymbol)
	h.cmd("signalmonitor", "xxx")
	assert.Contains(t, h.out.last(), "XXX_USDT не торгуется")
}

func TestDispatch_AddDelCoin(t *testing.T) {
	h := newHarness()

	h.cmd("addcoin", "doge/usdt")
	assert.Equal(t, []string{"DOGE_USDT"}, h.watcher.added)
	assert.Contains(t, h.out.last(), "DOGE_USDT добавлен")

	h.cmd("addcoin", "")
	assert.Contains(t, h.out.last(), "Формат")

	h.watcher.addErr = scan.ErrAlreadyWatched
	h.cmd("addcoin", "btc")
	assert.Contains(t, h.out.last(), "уже в вотчлисте")

	h.cmd("delcoin", "eth")
	assert.Contains(t, h.out.last(), "ETH_USDT удалён")

	h.watcher.delErr = scan.ErrNotWatched
	h.cmd("delcoin", "ada")
	assert.Contains(t, h.out.last(), "ADA_USDT нет в вотчлисте")
}

func TestDispatch_ListAndStatus(t *testing.T) {
	h := newHarness()

	h.cmd("listcoin", "")
	assert.Equal(t, "👀 Вотчлист:\nBTC_USDT\nETH_USDT", h.out.last())

	h.auto.profile = "stoch"
	h.cmd("status", "")
	assert.Contains(t, h.out.last(), "Авто-скан: вкл (stoch)")
}

func TestDispatch_StatusDailyCount(t *testing.T) {
	h := newHarness()
	h.tg.history = &countingHistory{n: 4}

	h.cmd("status", "")
	assert.Contains(t, h.out.last(), "Алертов за 24ч: 4")
}

func TestDispatch_Scan(t *testing.T) {
	h := newHarness()

	h.cmd("scan", "")
	h.cmd("scan", "stoch")
	h.cmd("scan_strict", "")
	h.cmd("stoch", "")

	assert.Equal(t, []string{"ema_touch", "stoch", "ema_touch_strict", "stoch"}, h.scanner.scans)
	assert.Equal(t, []int64{100, 100, 100, 100}, h.scanner.dests)
	assert.Contains(t, h.out.texts[1], "TF 15m, 1h")
}

func TestDispatch_ScanRejected(t *testing.T) {
	h := newHarness()

	h.cmd("scan", "nope")
	assert.Empty(t, h.scanner.scans)
	assert.Contains(t, h.out.last(), `Нет профиля "nope"`)

	h.scanner.scanning = true
	h.cmd("scan", "")
	assert.Empty(t, h.scanner.scans)
	assert.Equal(t, "⛔ Скан уже идёт", h.out.last())

	// гонка: флаг ещё не выставлен, а движок уже отказал
	h.scanner.scanning = false
	h.scanner.scanErr = scan.ErrScanInProgress
	h.cmd("scan", "")
	assert.Equal(t, "⛔ Скан уже идёт", h.out.last())

	h.scanner.scanErr = errors.New("boom")
	h.cmd("scan", "")
	assert.Contains(t, h.out.last(), "прерван: boom")
}

func TestDispatch_AutoScan(t *testing.T) {
	h := newHarness()

	h.cmd("autostop", "")
	assert.Equal(t, "Авто-скан не запущен", h.out.last())

	h.cmd("autostart", "")
	assert.Equal(t, "ema_touch", h.auto.profile)

	h.auto.err = fmt.Errorf("%w: ema_touch", scan.ErrAutoScanRunning)
	h.cmd("autostart", "stoch")
	assert.Contains(t, h.out.last(), "уже идёт (ema_touch)")

	h.auto.err = nil
	h.cmd("autostop", "")
	assert.Contains(t, h.out.last(), "остановлен")
	_, running := h.auto.Running()
	assert.False(t, running)
}

func TestDispatch_MoversAndHistory(t *testing.T) {
	h := newHarness()
	h.scanner.movers = []scan.MoverReport{{Mover: scan.Mover{Symbol: "WIF_USDT", ChangePct: 5}}}

	h.cmd("movers", "")
	require.Len(t, h.out.texts, 2)
	assert.Contains(t, h.out.last(), "WIF_USDT +5.00%")

	h.cmd("history", "")
	assert.Equal(t, 10, h.history.limit)
	h.cmd("history", "3")
	assert.Equal(t, 3, h.history.limit)
	assert.Contains(t, h.out.last(), "Алертов ещё не было")
}

func TestDispatch_Unknown(t *testing.T) {
	h := newHarness()
	h.cmd("moon", "")
	assert.Contains(t, h.out.last(), "Неизвестная команда")
}

func TestHandleUpdate_Command(t *testing.T) {
	h := newHarness()
	h.tg.handleUpdate(context.Background(), tgbot.Update{Message: &tgbot.Message{
		Text:     "/addcoin pepe",
		Chat:     &tgbot.Chat{ID: 5},
		Entities: []tgbot.MessageEntity{{Type: "bot_command", Offset: 0, Length: 7}},
	}})
	assert.Equal(t, []string{"PEPE_USDT"}, h.watcher.added)
	assert.Equal(t, []int64{5}, h.out.chats)

	// обычный текст игнорируется
	h.tg.handleUpdate(context.Background(), tgbot.Update{Message: &tgbot.Message{
		Text: "hello", Chat: &tgbot.Chat{ID: 5},
	}})
	assert.Len(t, h.out.chats, 1)
}

func TestStart_NoBot(t *testing.T) {
	h := newHarness()
	assert.NoError(t, h.tg.Start(context.Background()))
	h.tg.Stop()
}
