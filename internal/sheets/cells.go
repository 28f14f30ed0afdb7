package sheets

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mcarneiro/airbnb-organizer/internal/core"
)

// serialEpoch is day zero of spreadsheet serial dates.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

func safeGet(row []any, i int) any {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// cellDate accepts serial numbers, YYYY-MM-DD (optionally followed by a
// time) and the pt-BR DD/MM/YYYY display format.
func cellDate(v any) (core.Date, bool) {
	switch x := v.(type) {
	case float64:
		if x < 1 || math.IsNaN(x) || math.IsInf(x, 0) {
			return core.Date{}, false
		}
		return core.DateOf(serialEpoch.AddDate(0, 0, int(math.Floor(x)))), true
	case int:
		return cellDate(float64(x))
	case int64:
		return cellDate(float64(x))
	}
	s := cellString(v)
	if s == "" {
		return core.Date{}, false
	}
	if d, err := core.ParseDate(s); err == nil {
		return d, true
	}
	if t, err := time.Parse("02/01/2006", s); err == nil {
		return core.DateOf(t), true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return cellDate(f)
	}
	return core.Date{}, false
}

// cellMonth reads a month key written either as "YYYY-MM" or as any date
// within the month.
func cellMonth(v any) (core.MonthKey, bool) {
	if s, ok := v.(string); ok {
		if k, err := core.ParseMonthKey(s); err == nil {
			return k, true
		}
	}
	d, ok := cellDate(v)
	if !ok {
		return "", false
	}
	return d.MonthKey(), true
}

func cellMoney(v any) (core.Money, bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return core.Money{}, false
		}
		return core.MoneyFromFloat(x), true
	case int:
		return core.Money{Cents: int64(x) * 100}, true
	case int64:
		return core.Money{Cents: x * 100}, true
	}
	s := cellString(v)
	if s == "" {
		return core.Money{}, false
	}
	m, err := core.ParseSignedMoney(s)
	if err != nil {
		return core.Money{}, false
	}
	return m, true
}

func cellInt(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return int(x), true
	case int:
		return x, true
	case int64:
		return int(x), true
	}
	n, err := strconv.Atoi(cellString(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

func cellDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case float64:
		return decimal.NewFromFloat(x), true
	case int:
		return decimal.NewFromInt(int64(x)), true
	}
	s := strings.ReplaceAll(cellString(v), ",", ".")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func cellBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	}
	switch strings.ToLower(cellString(v)) {
	case "true", "1", "yes", "sim", "x":
		return true
	}
	return false
}
