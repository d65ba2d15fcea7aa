package assist

import (
	"context"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/zjrosen/vitae/internal/log"
)

// SalaryEstimate is a yearly compensation range.
type SalaryEstimate struct {
	Low      int    `json:"low"`
	High     int    `json:"high"`
	Currency string `json:"currency"`
	Note     string `json:"note,omitempty"`
	// Fallback is set when the service answered but no estimate could be
	// read from its answer.
	Fallback bool `json:"-"`
}

// DefaultSalaryEstimate is returned when the service response contains no
// usable JSON.
var DefaultSalaryEstimate = SalaryEstimate{
	Low:      60000,
	High:     90000,
	Currency: "USD",
	Note:     "Estimate unavailable; showing a generic range.",
	Fallback: true,
}

// EstimateSalary asks for a compensation range for role in location.
// Configuration and upstream failures are returned as *Error; a malformed
// answer yields DefaultSalaryEstimate and a nil error.
func (c *Client) EstimateSalary(ctx context.Context, role, location string) (SalaryEstimate, error) {
	out, err := c.run(ctx, request{
		op:     opSalary,
		system: salaryPrompt,
		user:   "Role: " + role + "\nLocation: " + location,
	})
	if err != nil {
		return SalaryEstimate{}, err
	}

	est, ok := parseSalary(out)
	if !ok {
		log.Warn(log.CatAssist, "Malformed salary estimate, using default", "bytes", len(out))
		return DefaultSalaryEstimate, nil
	}
	return est, nil
}

// parseSalary extracts the first JSON object embedded in text.
func parseSalary(text string) (SalaryEstimate, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return SalaryEstimate{}, false
	}
	raw := text[start : end+1]
	if !gjson.Valid(raw) {
		return SalaryEstimate{}, false
	}

	fields := gjson.GetMany(raw, "low", "high", "currency", "note")
	low, high := fields[0], fields[1]
	if low.Type != gjson.Number || high.Type != gjson.Number {
		return SalaryEstimate{}, false
	}
	est := SalaryEstimate{
		Low:      int(low.Int()),
		High:     int(high.Int()),
		Currency: fields[2].String(),
		Note:     fields[3].String(),
	}
	if est.Low <= 0 || est.High < est.Low {
		return SalaryEstimate{}, false
	}
	if est.Currency == "" {
		est.Currency = "USD"
	}
	return est, true
}

// String renders the range for the preview, e.g. "USD 80,000 – 120,000".
func (e SalaryEstimate) String() string {
	return e.Currency + " " + thousands(e.Low) + " – " + thousands(e.High)
}

func thousands(n int) string {
	s := strconv.Itoa(n)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

const salaryPrompt = `You estimate yearly salary ranges. Answer with a single JSON object ` +
	`of the form {"low": <int>, "high": <int>, "currency": "<ISO code>", "note": "<short note>"} ` +
	`and nothing else.`
