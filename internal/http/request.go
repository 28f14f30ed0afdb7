package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mcarneiro/airbnb-organizer/internal/core"
)

const maxBodyBytes = 64 << 10

var errBadBody = errors.New("malformed request body")

// amount accepts a JSON number or a string such as "1.234,56".
type amount string

func (a *amount) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amount(s)
		return nil
	}
	*a = amount(b)
	return nil
}

func (a amount) money() (core.Money, error) {
	return core.ParseMoney(string(a))
}

type reservationRequest struct {
	CheckIn string `json:"check_in"`
	Nights  int    `json:"nights"`
	Total   amount `json:"total"`
}

func (req reservationRequest) parse() (core.Date, int, core.Money, error) {
	checkIn, err := core.ParseDate(sanitizeInput(req.CheckIn))
	if err != nil {
		return core.Date{}, 0, core.Money{}, err
	}
	if req.Nights <= 0 {
		return core.Date{}, 0, core.Money{}, core.ErrInvalidNights
	}
	total, err := req.Total.money()
	if err != nil {
		return core.Date{}, 0, core.Money{}, err
	}
	return checkIn, req.Nights, total, nil
}

type expenseRequest struct {
	Date     string `json:"date"`
	Amount   amount `json:"amount"`
	Category string `json:"category"`
	Notes    string `json:"notes"`
}

func (req expenseRequest) expense() (core.Expense, error) {
	date, err := core.ParseDate(sanitizeInput(req.Date))
	if err != nil {
		return core.Expense{}, err
	}
	amt, err := req.Amount.money()
	if err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{Date: date, Amount: amt, Notes: sanitizeInput(req.Notes)}
	if c := sanitizeInput(req.Category); c != "" {
		if e.Category, err = core.ParseCategory(c); err != nil {
			return core.Expense{}, err
		}
	}
	return e, nil
}

type settingsRequest struct {
	Dependents int             `json:"dependents"`
	OwnerSplit decimal.Decimal `json:"owner_split"`
	AdminSplit decimal.Decimal `json:"admin_split"`
}

func (req settingsRequest) settings() core.Settings {
	return core.Settings{
		Dependents: req.Dependents,
		OwnerSplit: req.OwnerSplit,
		AdminSplit: req.AdminSplit,
	}
}

type storeRequest struct {
	SpreadsheetID string `json:"spreadsheet_id"`
}

// decodeJSON reads a single JSON object into dst. Unknown fields and
// trailing data are rejected. Decoding failures wrap core.ErrValidation.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %w: empty body", core.ErrValidation, errBadBody)
		}
		return fmt.Errorf("%w: %w: %v", core.ErrValidation, errBadBody, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: %w: trailing data", core.ErrValidation, errBadBody)
	}
	return nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
