package extraction

import (
	"math"
	"regexp"
	"testing"
	"time"
)

func moneyEntity(units string, nanos int64, code string) Entity {
	return Entity{
		Kind:       KindTotalAmount,
		Confidence: 0.9,
		NormalizedValue: &NormalizedValue{
			MoneyValue: &MoneyValue{CurrencyCode: code, Units: units, Nanos: nanos},
		},
	}
}

func TestMoneyAmountStructured(t *testing.T) {
	tests := []struct {
		name  string
		units string
		nanos int64
		want  float64
	}{
		{"units and nanos", "24", 500000000, 24.5},
		{"whole units", "30", 0, 30},
		{"nanos only", "0", 100000000, 0.1},
		{"large amount", "1250", 990000000, 1250.99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MoneyAmount(moneyEntity(tt.units, tt.nanos, "MYR"))
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("MoneyAmount = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMoneyAmountFromText(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"RM 125.50", 125.50},
		{"RM1,250.00", 1250},
		{"$9.99", 9.99},
		{"S$ 4.20", 4.20},
		{"TOTAL: 30.10", 30.10},
		{"no digits here", 0},
		{"", 0},
		{"-5.00", -5},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := MoneyAmount(Entity{Kind: KindTotal, Text: tt.text})
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("MoneyAmount(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		text     string
		wantCode string
	}{
		{"RM 125.50", "MYR"},
		{"S$4.20", "SGD"}, // S$ must win over plain $
		{"$9.99", "USD"},
		{"€12.00", "EUR"},
		{"£7.50", "GBP"},
		{"125.50", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			code, _ := ParseCurrency(tt.text)
			if code != tt.wantCode {
				t.Errorf("ParseCurrency(%q) = %q, want %q", tt.text, code, tt.wantCode)
			}
		})
	}
}

func TestDateISOStructured(t *testing.T) {
	e := Entity{
		Kind:            KindReceiptDate,
		NormalizedValue: &NormalizedValue{DateValue: &DateValue{Year: 2025, Month: 3, Day: 7}},
	}
	if got := DateISO(e); got != "2025-03-07" {
		t.Errorf("DateISO = %q, want 2025-03-07", got)
	}
}

func TestDateISOFromText(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"07/03/2025", "2025-03-07"},
		{"7/3/25", "2025-03-07"},
		{"07-03-2025", "2025-03-07"},
		{"Date: 15/12/24 Thank you", "2024-12-15"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := DateISO(Entity{Kind: KindReceiptDate, Text: tt.text})
			if got != tt.want {
				t.Errorf("DateISO(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestDateISOFallsBackToToday(t *testing.T) {
	got := DateISO(Entity{Kind: KindReceiptDate, Text: "not a date"})
	if !regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`).MatchString(got) {
		t.Errorf("DateISO fallback = %q, want ISO date", got)
	}
}

func TestDateISORejectsImpossibleDates(t *testing.T) {
	today := time.Now().Format("2006-01-02")
	tests := []string{
		"31/02/2025", // February has no 31st
		"29/02/2025", // not a leap year
		"31/04/2024", // April has 30 days
	}

	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			if got := DateISO(Entity{Kind: KindReceiptDate, Text: text}); got != today {
				t.Errorf("DateISO(%q) = %q, want today %q", text, got, today)
			}
		})
	}

	// Leap day in a leap year is a real date and must survive.
	if got := DateISO(Entity{Kind: KindReceiptDate, Text: "29/02/2024"}); got != "2024-02-29" {
		t.Errorf("DateISO leap day = %q, want 2024-02-29", got)
	}
}

func TestEntityCurrency(t *testing.T) {
	if got := EntityCurrency(moneyEntity("30", 100000000, "MYR")); got != "MYR" {
		t.Errorf("EntityCurrency structured = %q, want MYR", got)
	}
	if got := EntityCurrency(Entity{Kind: KindTotal, Text: "RM 12.00"}); got != "MYR" {
		t.Errorf("EntityCurrency text = %q, want MYR", got)
	}
}
