package telegram

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/simaogato/coinfolio-bot/internal/domain"
	"github.com/simaogato/coinfolio-bot/internal/usecase/aggregator"
	"github.com/simaogato/coinfolio-bot/internal/usecase/history"
	"github.com/simaogato/coinfolio-bot/internal/usecase/ledger"
	"github.com/simaogato/coinfolio-bot/internal/usecase/report"
)

const (
	textWelcome = "Welcome! 💡\n\n" +
		"Record your crypto buys, watch your allocation and get a profit/loss summary at live Binance prices."
	textNext       = "What next?"
	textEmpty      = "📉 Your portfolio is empty."
	textNoHistory  = "📈 No snapshots yet. Values are recorded every few hours once you hold something."
	textEditPrompt = "Tap a transaction to delete it:"
	textFailure    = "⚠️ Something went wrong. Please try again later."
)

func addPrompt() string {
	return "📥 Send: <b>" + ledger.InputFormat + "</b>\n" +
		"Example: <code>BTC 0.02 50000 2024-06-11</code>\n" +
		"Without a date, today is used."
}

func helpText() string {
	return "Tap <b>Add transaction</b> and send <b>" + ledger.InputFormat + "</b>.\n" +
		"A ticker like BTC is matched to its USDT pair.\n\n" +
		"/start shows the menu, /cancel drops a pending entry."
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func signed(d decimal.Decimal) string {
	if d.IsNegative() {
		return d.StringFixed(2)
	}
	return "+" + d.StringFixed(2)
}

func renderAdded(tx *domain.Transaction) string {
	return fmt.Sprintf("✅ Added: <b>%s</b> %s @ %s (%s)\n\n%s",
		tx.Symbol, tx.Amount.String(), tx.BuyPrice.String(), tx.PurchaseDate.Format(domain.DateLayout), textNext)
}

func renderPortfolio(p *report.Portfolio, quote string) string {
	if p.Empty() {
		return textEmpty
	}

	var b strings.Builder
	for _, h := range p.Holdings {
		fmt.Fprintf(&b, "<b>%s</b>\n", h.Position.Symbol)
		fmt.Fprintf(&b, "  • Amount: %s\n", h.Position.TotalAmount.String())
		fmt.Fprintf(&b, "  • Avg: %s\n", money(h.Position.AverageCost))
		fmt.Fprintf(&b, "  • Now: %s\n", money(h.CurrentPrice))
		fmt.Fprintf(&b, "  • PnL: %s %s (%s%%)\n\n", signed(h.PnL), quote, signed(h.PnLPercent))
	}
	fmt.Fprintf(&b, "<b>Total PnL:</b> %s %s", signed(p.TotalPnL), quote)
	return b.String()
}

func renderAllocation(shares []aggregator.Share) string {
	if len(shares) == 0 {
		return textEmpty
	}

	var b strings.Builder
	b.WriteString("📊 <b>Allocation</b>\n\n")
	for _, s := range shares {
		fmt.Fprintf(&b, "🔹 %s: %s%%\n", s.Symbol, s.Percent.StringFixed(2))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func renderSummary(s *report.SummaryReport, quote string) string {
	if len(s.Symbols) == 0 {
		return textEmpty
	}

	var b strings.Builder
	for _, line := range s.Symbols {
		fmt.Fprintf(&b, "• %s: invested %s %s, now %s %s\n",
			line.Symbol, money(line.Invested), quote, money(line.Current), quote)
	}
	fmt.Fprintf(&b, "\n<b>Invested:</b> %s %s\n", money(s.Totals.Invested), quote)
	fmt.Fprintf(&b, "<b>Current:</b> %s %s\n", money(s.Totals.Current), quote)
	fmt.Fprintf(&b, "<b>PnL:</b> %s %s (%s%%)", signed(s.Totals.PnL), quote, signed(s.Totals.PnLPercent))
	return b.String()
}

func renderHistory(h *history.History, quote string) string {
	if h.Empty() {
		return textNoHistory
	}

	var b strings.Builder
	b.WriteString("📈 <b>Value history</b>\n\n")
	for _, p := range h.Points {
		fmt.Fprintf(&b, "%s  %s %s\n", p.CreatedAt.UTC().Format("2006-01-02 15:04"), money(p.TotalValue), quote)
	}
	if len(h.Points) > 1 {
		fmt.Fprintf(&b, "\n<b>Change:</b> %s %s (%s%%)", signed(h.Change), quote, signed(h.ChangePercent))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// renderError turns a recoverable error into a short message for the user
func renderError(err error, rawSymbol string) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		msg := strings.TrimPrefix(err.Error(), domain.ErrInvalidInput.Error()+": ")
		return "❌ " + html.EscapeString(msg) + "\nTap <b>Add transaction</b> to try again."
	case errors.Is(err, domain.ErrSymbolNotFound):
		return fmt.Sprintf("❌ %s is not traded on Binance.", html.EscapeString(strings.ToUpper(strings.TrimSpace(rawSymbol))))
	case errors.Is(err, domain.ErrPriceUnavailable):
		return "⚠️ Prices are unavailable right now. Please try again later."
	default:
		return textFailure
	}
}
