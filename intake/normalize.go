package intake

import (
	"bytes"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date wire format for due dates.
const DateLayout = "2006-01-02"

// FlexString accepts a JSON string, number, boolean or null and keeps its
// textual form. null decodes to "".
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	if data[0] == '-' || (data[0] >= '0' && data[0] <= '9') {
		// exponent forms would not survive numericPrefix
		if bytes.ContainsAny(data, "eE") {
			d, err := decimal.NewFromString(string(data))
			if err != nil {
				return err
			}
			*f = FlexString(d.String())
			return nil
		}
	}
	// other numbers and booleans keep their literal text
	*f = FlexString(data)
	return nil
}

func (f FlexString) String() string { return string(f) }

// NormalizeText maps the empty string to null.
func NormalizeText(raw string) sql.NullString {
	if raw == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: raw, Valid: true}
}

// NormalizeFlag maps "yes"/"no" to true/false. JSON booleans arrive as
// "true"/"false" through FlexString and are accepted too; anything else is
// null.
func NormalizeFlag(raw string) sql.NullBool {
	switch raw {
	case "yes", "true":
		return sql.NullBool{Bool: true, Valid: true}
	case "no", "false":
		return sql.NullBool{Bool: false, Valid: true}
	default:
		return sql.NullBool{}
	}
}

// numericPrefix strips everything except digits and dots, then keeps the
// longest leading run that still parses as a number ("1.2.3" -> "1.2"). A
// minus sign ahead of the first digit is kept ("-100", "$-5", "-$5").
func numericPrefix(raw string) string {
	var b strings.Builder
	b.Grow(len(raw) + 1)
	negative, seenDigit := false, false
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
			b.WriteRune(r)
		case r == '.':
			b.WriteRune(r)
		case r == '-' && !seenDigit && b.Len() == 0:
			negative = true
		}
	}
	s := b.String()
	if i := strings.IndexByte(s, '.'); i >= 0 {
		if j := strings.IndexByte(s[i+1:], '.'); j >= 0 {
			s = s[:i+1+j]
		}
	}
	s = strings.TrimSuffix(s, ".")
	if s == "" || s == "." {
		return ""
	}
	if negative {
		return "-" + s
	}
	return s
}

// NormalizeDecimal tolerantly parses currency and percentage strings:
// "$1,250.50" -> 1250.5, "12.5%" -> 12.5. Empty or non-numeric input is null.
func NormalizeDecimal(raw string) decimal.NullDecimal {
	s := numericPrefix(raw)
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// NormalizeInt parses a whole number after the same stripping as
// NormalizeDecimal; any fractional part is truncated.
func NormalizeInt(raw string) sql.NullInt64 {
	s := numericPrefix(raw)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return sql.NullInt64{}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: n, Valid: true}
}

// NormalizeDate parses a YYYY-MM-DD calendar date (a full RFC 3339 timestamp
// is accepted and truncated to its date). Empty input is null.
func NormalizeDate(raw string) (sql.NullTime, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return sql.NullTime{}, nil
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		ts, tsErr := time.Parse(time.RFC3339, raw)
		if tsErr != nil {
			return sql.NullTime{}, err
		}
		t = ts
	}
	return sql.NullTime{Time: DateOf(t), Valid: true}, nil
}
