package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/simaogato/coinfolio-bot/internal/domain"
)

// Callback data carried by inline buttons
const (
	cbAdd        = "add_transaction"
	cbPortfolio  = "show_portfolio"
	cbEdit       = "edit_transactions"
	cbAllocation = "allocation"
	cbSummary    = "summary"
	cbHistory    = "history"
	cbExport     = "export"
	cbMenu       = "main_menu"

	deletePrefix = "del_"
)

func mainMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("➕ Add transaction", cbAdd)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("💼 Portfolio", cbPortfolio)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✏️ Edit", cbEdit)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Allocation", cbAllocation),
			tgbotapi.NewInlineKeyboardButtonData("📝 Summary", cbSummary),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📈 History", cbHistory),
			tgbotapi.NewInlineKeyboardButtonData("📄 Export", cbExport),
		),
	)
}

func backMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("◀️ Back", cbMenu)),
	)
}

// editMenu has one delete button per transaction, then Back
func editMenu(txs []*domain.Transaction) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(txs)+1)
	for _, tx := range txs {
		label := fmt.Sprintf("🗑 %s %s @ %s (%s)",
			tx.Symbol, tx.Amount.String(), tx.BuyPrice.String(), tx.PurchaseDate.Format(domain.DateLayout))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, deleteData(tx.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("◀️ Back", cbMenu)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func deleteData(id uuid.UUID) string {
	return deletePrefix + id.String()
}
