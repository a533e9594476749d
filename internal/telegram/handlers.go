package telegram

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"energydash/internal/ai"
	"energydash/internal/marketdata"
	"energydash/internal/render"
	"energydash/internal/storage"
	"energydash/internal/universe"
)

var (
	// /sectors
	reSectors = regexp.MustCompile(`^/sectors(?:@[\w_]+)?$`)
	// /trend SECTOR [1mo|1y|3y]
	reTrend = regexp.MustCompile(`^/trend(?:@[\w_]+)?\s+(\S+)(?:\s+(1mo|1y|3y))?$`)
	// /stock TICKER [1mo|1y|3y]
	reStock = regexp.MustCompile(`^/stock(?:@[\w_]+)?\s+([A-Za-z0-9\.^_=+-]+)(?:\s+(1mo|1y|3y))?$`)
	// /gains SECTOR
	reGains = regexp.MustCompile(`^/gains(?:@[\w_]+)?\s+(\S+)$`)
	// /daily TICKER
	reDaily = regexp.MustCompile(`^/daily(?:@[\w_]+)?\s+([A-Za-z0-9\.^_=+-]+)$`)
	// /comment SECTOR
	reComment = regexp.MustCompile(`^/comment(?:@[\w_]+)?\s+(\S+)$`)
	// /help
	reHelp = regexp.MustCompile(`^/(help|start)(?:@[\w_]+)?$`)
)

const historyLookback = "3y"

type Handlers struct {
	api         *tgbotapi.BotAPI
	svc         *marketdata.Service
	store       *storage.Store
	commentator *ai.Commentator
	log         *zap.Logger
}

func NewHandlers(api *tgbotapi.BotAPI, svc *marketdata.Service, store *storage.Store, commentator *ai.Commentator, log *zap.Logger) *Handlers {
	return &Handlers{api: api, svc: svc, store: store, commentator: commentator, log: log}
}

func (h *Handlers) HandleMessage(m *tgbotapi.Message) {
	txt := strings.TrimSpace(m.Text)
	start := time.Now()
	section := ""
	defer func() {
		if section == "" || h.store == nil {
			return
		}
		_ = h.store.RecordRequest(storage.RequestRecord{
			ID:       uuid.NewString(),
			Section:  "telegram/" + section,
			Status:   200,
			Duration: time.Since(start),
			At:       start,
		})
	}()

	switch {
	case reSectors.MatchString(txt):
		section = "sectors"
		h.handleSectors(m.Chat.ID)

	case reTrend.MatchString(txt):
		section = "trend"
		g := reTrend.FindStringSubmatch(txt)
		window := g[2]
		if window == "" {
			window = "1y"
		}
		h.handleTrend(m.Chat.ID, g[1], window)

	case reStock.MatchString(txt):
		section = "stock"
		g := reStock.FindStringSubmatch(txt)
		window := g[2]
		if window == "" {
			window = "1y"
		}
		h.handleStock(m.Chat.ID, strings.ToUpper(g[1]), window)

	case reGains.MatchString(txt):
		section = "gains"
		g := reGains.FindStringSubmatch(txt)
		h.handleGains(m.Chat.ID, g[1])

	case reDaily.MatchString(txt):
		section = "daily"
		g := reDaily.FindStringSubmatch(txt)
		h.handleDaily(m.Chat.ID, strings.ToUpper(g[1]))

	case reComment.MatchString(txt):
		section = "comment"
		g := reComment.FindStringSubmatch(txt)
		h.handleComment(m.Chat.ID, g[1])

	case reHelp.MatchString(txt):
		section = "help"
		h.handleHelp(m.Chat.ID)
	}
}

func (h *Handlers) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.api.Send(msg); err != nil {
		h.log.Warn("telegram send failed", zap.Error(err))
	}
}

func (h *Handlers) sendPhoto(chatID int64, name string, img []byte, caption string) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: img})
	photo.Caption = caption
	if _, err := h.api.Send(photo); err != nil {
		h.log.Warn("telegram photo send failed", zap.Error(err))
	}
}

func (h *Handlers) handleSectors(chatID int64) {
	var b strings.Builder
	b.WriteString("Sectors:\n")
	for _, s := range universe.Sectors() {
		fmt.Fprintf(&b, "• %s (%d stocks)\n", s, len(universe.Tickers(s)))
	}
	h.reply(chatID, b.String())
}

// sectorWindow loads the sector's 3y history and slices off the requested
// display window.
func (h *Handlers) sectorWindow(ctx context.Context, sector, window string) (*marketdata.PriceTable, []string, error) {
	tickers := universe.Tickers(sector)
	if tickers == nil {
		return nil, nil, fmt.Errorf("unknown sector %q, try /sectors", sector)
	}
	sel := marketdata.Selection{Sector: sector, Tickers: tickers, Benchmark: universe.Benchmark}
	table, dropped, err := h.svc.LoadHistory(ctx, sel, marketdata.Daily, historyLookback)
	if err != nil {
		return nil, nil, err
	}
	end := table.LastDate()
	var start time.Time
	switch window {
	case "1mo":
		start = end.AddDate(0, -1, 0)
	case "3y":
		start = end.AddDate(-3, 0, 0)
	default:
		start = end.AddDate(-1, 0, 0)
	}
	return marketdata.SliceByWindow(table, start, end), dropped, nil
}

func (h *Handlers) handleTrend(chatID int64, sector, window string) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	win, dropped, err := h.sectorWindow(ctx, sector, window)
	if err != nil {
		h.reply(chatID, err.Error())
		return
	}
	norm, excluded := marketdata.Normalize(win)
	img, err := render.CompareChart(norm, universe.DisplayName, window, sector)
	if err != nil {
		h.reply(chatID, "Chart failed: "+err.Error())
		return
	}
	caption := sector + " • " + window
	if skipped := append(dropped, excluded...); len(skipped) > 0 {
		caption += " • no data: " + strings.Join(skipped, ", ")
	}
	h.sendPhoto(chatID, sector+"_"+window+".png", img, caption)
}

func (h *Handlers) handleStock(chatID int64, ticker, window string) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	sel := marketdata.Selection{Tickers: []string{ticker}, Benchmark: universe.Benchmark}
	table, _, err := h.svc.LoadHistory(ctx, sel, marketdata.Daily, historyLookback)
	if err != nil {
		h.reply(chatID, "Fetch failed: "+err.Error())
		return
	}
	end := table.LastDate()
	var start time.Time
	switch window {
	case "1mo":
		start = end.AddDate(0, -1, 0)
	case "3y":
		start = end.AddDate(-3, 0, 0)
	default:
		start = end.AddDate(-1, 0, 0)
	}
	norm, _ := marketdata.Normalize(marketdata.SliceByWindow(table, start, end))
	img, err := render.TrendChart(norm, ticker, universe.Benchmark, universe.DisplayName, window)
	if err != nil {
		h.reply(chatID, "Chart failed: "+err.Error())
		return
	}
	h.sendPhoto(chatID, ticker+"_"+window+".png", img, universe.DisplayName(ticker)+" • "+window)
}

func (h *Handlers) handleGains(chatID int64, sector string) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	tickers := universe.Tickers(sector)
	if tickers == nil {
		h.reply(chatID, fmt.Sprintf("unknown sector %q, try /sectors", sector))
		return
	}
	sel := marketdata.Selection{Sector: sector, Tickers: tickers}
	table, _, err := h.svc.LoadHistory(ctx, sel, marketdata.Daily, historyLookback)
	if err != nil {
		h.reply(chatID, "Fetch failed: "+err.Error())
		return
	}
	gains := h.svc.GainSummary(table, marketdata.GainMetrics)
	lines := ai.FormatGainLines(table.Tickers, marketdata.GainMetrics, gains, universe.DisplayName)
	h.reply(chatID, sector+"\n"+strings.Join(lines, "\n"))
}

func (h *Handlers) handleDaily(chatID int64, ticker string) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	sel := marketdata.Selection{Tickers: []string{ticker}}
	table, _, err := h.svc.LoadDailyTable(ctx, sel, "6mo")
	if err != nil {
		h.reply(chatID, "Fetch failed: "+err.Error())
		return
	}
	change := marketdata.DailyChangeTable(table, marketdata.DailyChangeRowsShort)
	img, err := render.DailyGainBars(change, ticker, universe.DisplayName)
	if err != nil {
		h.reply(chatID, "Chart failed: "+err.Error())
		return
	}
	h.sendPhoto(chatID, ticker+"_daily.png", img, universe.DisplayName(ticker)+" daily % change")
}

func (h *Handlers) handleComment(chatID int64, sector string) {
	if h.commentator == nil {
		h.reply(chatID, "Commentary is not configured.")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()
	tickers := universe.Tickers(sector)
	if tickers == nil {
		h.reply(chatID, fmt.Sprintf("unknown sector %q, try /sectors", sector))
		return
	}
	sel := marketdata.Selection{Sector: sector, Tickers: tickers}
	table, _, err := h.svc.LoadHistory(ctx, sel, marketdata.Daily, historyLookback)
	if err != nil {
		h.reply(chatID, "Fetch failed: "+err.Error())
		return
	}
	gains := h.svc.GainSummary(table, marketdata.GainMetrics)
	lines := ai.FormatGainLines(table.Tickers, marketdata.GainMetrics, gains, universe.DisplayName)
	text, err := h.commentator.Comment(ctx, sector, lines)
	if err != nil {
		h.reply(chatID, "Commentary failed: "+err.Error())
		return
	}
	h.reply(chatID, text)
}

func (h *Handlers) handleHelp(chatID int64) {
	h.reply(chatID, `Commands:
/sectors - list sectors
/trend SECTOR [1mo|1y|3y] - sector comparison chart
/stock TICKER [1mo|1y|3y] - single stock vs Nikkei
/gains SECTOR - gain table across windows
/daily TICKER - daily % change bars
/comment SECTOR - AI commentary on the gain table
/help - this message`)
}
