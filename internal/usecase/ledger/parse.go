package ledger

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/coinfolio-bot/internal/domain"
)

// InputFormat is the add-transaction grammar shown to users
const InputFormat = "SYMBOL AMOUNT PRICE [YYYY-MM-DD]"

// plainNumber is a positional decimal with bounded integer and fraction digits.
// Exponent notation is rejected before it reaches the decimal parser.
var plainNumber = regexp.MustCompile(`^\d{1,20}([.,]\d{1,18})?$`)

// ParseAddTransaction parses "SYMBOL AMOUNT PRICE [YYYY-MM-DD]"
// Logic:
//   - Fields are whitespace separated; 3 or 4 fields are accepted
//   - AMOUNT and PRICE are plain decimals (up to 20 integer and 18 fraction
//     digits, "," or "." separator) and must be positive
//   - DATE defaults to today (date part only)
//
// Errors wrap domain.ErrInvalidInput and carry a message fit for the user.
func ParseAddTransaction(ownerID int64, text string, today time.Time) (AddTransactionInput, error) {
	fields := strings.Fields(text)
	if len(fields) != 3 && len(fields) != 4 {
		return AddTransactionInput{}, fmt.Errorf("%w: expected %s", domain.ErrInvalidInput, InputFormat)
	}

	amount, err := parsePositive(fields[1])
	if err != nil {
		return AddTransactionInput{}, fmt.Errorf("%w: amount must be a positive number", domain.ErrInvalidInput)
	}

	price, err := parsePositive(fields[2])
	if err != nil {
		return AddTransactionInput{}, fmt.Errorf("%w: price must be a positive number", domain.ErrInvalidInput)
	}

	date := truncateToDate(today)
	if len(fields) == 4 {
		date, err = time.Parse(domain.DateLayout, fields[3])
		if err != nil {
			return AddTransactionInput{}, fmt.Errorf("%w: date must be in YYYY-MM-DD format", domain.ErrInvalidInput)
		}
	}

	return AddTransactionInput{
		OwnerID:      ownerID,
		RawSymbol:    fields[0],
		Amount:       amount,
		BuyPrice:     price,
		PurchaseDate: date,
	}, nil
}

func parsePositive(s string) (decimal.Decimal, error) {
	if !plainNumber.MatchString(s) {
		return decimal.Zero, fmt.Errorf("%s is not a plain decimal", s)
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Zero, err
	}
	if d.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%s is not positive", s)
	}
	return d, nil
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
