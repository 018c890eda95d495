// Package telegram is the chat front end: it turns Telegram updates into
// ledger writes and portfolio reports.
package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/simaogato/coinfolio-bot/internal/domain"
	"github.com/simaogato/coinfolio-bot/internal/logging"
	"github.com/simaogato/coinfolio-bot/internal/usecase/aggregator"
	"github.com/simaogato/coinfolio-bot/internal/usecase/export"
	"github.com/simaogato/coinfolio-bot/internal/usecase/history"
	"github.com/simaogato/coinfolio-bot/internal/usecase/ledger"
	"github.com/simaogato/coinfolio-bot/internal/usecase/report"
)

// DefaultRequestTimeout bounds the handling of a single update
const DefaultRequestTimeout = 20 * time.Second

// Messenger sends to Telegram; *tgbotapi.BotAPI satisfies it
type Messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Ledger records and removes transactions
type Ledger interface {
	AddTransaction(ctx context.Context, input ledger.AddTransactionInput) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, ownerID int64) ([]*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, ownerID int64, id uuid.UUID) error
}

// Reports builds portfolio views at live prices
type Reports interface {
	Portfolio(ctx context.Context, ownerID int64) (*report.Portfolio, error)
	Allocation(ctx context.Context, ownerID int64) ([]aggregator.Share, error)
	Summary(ctx context.Context, ownerID int64) (*report.SummaryReport, error)
}

// Histories reads the snapshot trail
type Histories interface {
	History(ctx context.Context, ownerID int64) (*history.History, error)
}

// Exporter produces a spreadsheet of the ledger
type Exporter interface {
	Export(ctx context.Context, ownerID int64) ([]byte, error)
}

// Services groups the use cases the controller drives
type Services struct {
	Ledger  Ledger
	Reports Reports
	History Histories
	Export  Exporter
}

// Controller handles one update at a time; it is safe to call Handle from
// several goroutines because the only shared state is the SessionStore.
type Controller struct {
	bot            Messenger
	svc            Services
	sessions       *SessionStore
	logger         *logging.Logger
	quoteAsset     string
	requestTimeout time.Duration
	now            func() time.Time
}

// NewController creates a new Controller instance
func NewController(bot Messenger, svc Services, sessions *SessionStore, quoteAsset string, logger *logging.Logger) *Controller {
	if logger == nil {
		logger = logging.NewSilentLogger()
	}
	return &Controller{
		bot:            bot,
		svc:            svc,
		sessions:       sessions,
		logger:         logger.WithComponent("telegram"),
		quoteAsset:     quoteAsset,
		requestTimeout: DefaultRequestTimeout,
		now:            time.Now,
	}
}

// Handle routes an update to its handler. The chat id is the owner id.
func (c *Controller) Handle(ctx context.Context, update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		c.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		c.handleMessage(ctx, update.Message)
	}
}

func (c *Controller) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			c.sessions.Clear(chatID)
			c.send(chatID, textWelcome, mainMenu())
		case "help":
			c.send(chatID, helpText(), mainMenu())
		case "cancel":
			c.sessions.Clear(chatID)
			c.send(chatID, textNext, mainMenu())
		default:
			c.send(chatID, textNext, mainMenu())
		}
		return
	}

	if c.sessions.Take(chatID) == StateAwaitingTransaction {
		c.addTransaction(ctx, chatID, msg.Text)
		return
	}

	c.send(chatID, textNext, mainMenu())
}

// addTransaction runs the add flow; the dialogue is already cleared
// whatever the outcome
func (c *Controller) addTransaction(ctx context.Context, chatID int64, text string) {
	input, err := ledger.ParseAddTransaction(chatID, text, c.now())
	if err != nil {
		c.send(chatID, renderError(err, ""), mainMenu())
		return
	}

	tx, err := c.svc.Ledger.AddTransaction(ctx, input)
	if err != nil {
		c.logFailure(err, chatID, "add transaction")
		c.send(chatID, renderError(err, input.RawSymbol), mainMenu())
		return
	}

	c.send(chatID, renderAdded(tx), mainMenu())
}

func (c *Controller) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	chatID := cq.Message.Chat.ID
	messageID := cq.Message.MessageID
	data := cq.Data

	if data != cbAdd {
		c.sessions.Clear(chatID)
	}

	switch {
	case data == cbAdd:
		c.sessions.Set(chatID, StateAwaitingTransaction)
		c.edit(chatID, messageID, addPrompt(), backMenu())

	case data == cbMenu:
		c.edit(chatID, messageID, textNext, mainMenu())

	case data == cbPortfolio:
		p, err := c.svc.Reports.Portfolio(ctx, chatID)
		if err != nil {
			c.fail(chatID, messageID, err, "portfolio")
			break
		}
		c.edit(chatID, messageID, renderPortfolio(p, c.quoteAsset), mainMenu())

	case data == cbAllocation:
		shares, err := c.svc.Reports.Allocation(ctx, chatID)
		if err != nil {
			c.fail(chatID, messageID, err, "allocation")
			break
		}
		c.edit(chatID, messageID, renderAllocation(shares), backMenu())

	case data == cbSummary:
		s, err := c.svc.Reports.Summary(ctx, chatID)
		if err != nil {
			c.fail(chatID, messageID, err, "summary")
			break
		}
		c.edit(chatID, messageID, renderSummary(s, c.quoteAsset), backMenu())

	case data == cbEdit:
		c.showEditor(ctx, chatID, messageID)

	case strings.HasPrefix(data, deletePrefix):
		id, err := uuid.Parse(strings.TrimPrefix(data, deletePrefix))
		if err != nil {
			c.answer(cq.ID, "Unknown transaction")
			return
		}
		if err := c.svc.Ledger.DeleteTransaction(ctx, chatID, id); err != nil {
			c.logFailure(err, chatID, "delete transaction")
			c.answer(cq.ID, "Delete failed")
			return
		}
		c.answer(cq.ID, "✅ Deleted")
		c.showEditor(ctx, chatID, messageID)
		return

	case data == cbHistory:
		c.showHistory(ctx, chatID, messageID)

	case data == cbExport:
		c.sendExport(ctx, chatID, messageID)
	}

	c.answer(cq.ID, "")
}

func (c *Controller) showEditor(ctx context.Context, chatID int64, messageID int) {
	txs, err := c.svc.Ledger.ListTransactions(ctx, chatID)
	if err != nil {
		c.fail(chatID, messageID, err, "list transactions")
		return
	}
	if len(txs) == 0 {
		c.edit(chatID, messageID, textEmpty, mainMenu())
		return
	}
	c.edit(chatID, messageID, textEditPrompt, editMenu(txs))
}

func (c *Controller) showHistory(ctx context.Context, chatID int64, messageID int) {
	h, err := c.svc.History.History(ctx, chatID)
	if err != nil {
		c.fail(chatID, messageID, err, "history")
		return
	}

	if h.Chart != nil {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "history.png", Bytes: h.Chart})
		if _, err := c.bot.Send(photo); err != nil {
			c.logger.Warn().Err(err).Int64("chat", chatID).Msg("Failed to send history chart")
		}
	}
	c.edit(chatID, messageID, renderHistory(h, c.quoteAsset), backMenu())
}

func (c *Controller) sendExport(ctx context.Context, chatID int64, messageID int) {
	out, err := c.svc.Export.Export(ctx, chatID)
	if errors.Is(err, export.ErrNothingToExport) {
		c.edit(chatID, messageID, textEmpty, mainMenu())
		return
	}
	if err != nil {
		c.fail(chatID, messageID, err, "export")
		return
	}

	name := "portfolio-" + c.now().UTC().Format(domain.DateLayout) + ".xlsx"
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: out})
	if _, err := c.bot.Send(doc); err != nil {
		c.logger.Error().Err(err).Int64("chat", chatID).Msg("Failed to send export")
		c.edit(chatID, messageID, textFailure, mainMenu())
		return
	}
	c.edit(chatID, messageID, textNext, mainMenu())
}

// fail shows a recoverable error in place of the report with the main menu
func (c *Controller) fail(chatID int64, messageID int, err error, action string) {
	c.logFailure(err, chatID, action)
	c.edit(chatID, messageID, renderError(err, ""), mainMenu())
}

func (c *Controller) logFailure(err error, chatID int64, action string) {
	event := c.logger.Error()
	if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrSymbolNotFound) {
		event = c.logger.Debug()
	} else if errors.Is(err, domain.ErrPriceUnavailable) {
		event = c.logger.Warn()
	}
	event.Err(err).Int64("chat", chatID).Str("action", action).Msg("Request failed")
}

func (c *Controller) send(chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	if _, err := c.bot.Send(msg); err != nil {
		c.logger.Error().Err(err).Int64("chat", chatID).Msg("Failed to send message")
	}
}

func (c *Controller) edit(chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := c.bot.Send(msg); err != nil {
		// Telegram rejects edits that change nothing
		if strings.Contains(err.Error(), "message is not modified") {
			return
		}
		c.logger.Error().Err(err).Int64("chat", chatID).Msg("Failed to edit message")
	}
}

func (c *Controller) answer(callbackID, text string) {
	if _, err := c.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to answer callback")
	}
}
