package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wonny/investor-coach/internal/contracts"
)

// MaxTickers per comparison
const MaxTickers = 25

var tickerPattern = regexp.MustCompile(`^[A-Z0-9.\-]{1,10}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("ticker", func(fl validator.FieldLevel) bool {
		return tickerPattern.MatchString(fl.Field().String())
	})
	// 에러 메시지에 json 이름 사용
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// CompareInput is the raw user request for a comparison
type CompareInput struct {
	Tickers   []string `json:"tickers" validate:"min=1,max=25,dive,ticker"`
	Benchmark string   `json:"benchmark" validate:"required,ticker"`
	Profile   string   `json:"profile" validate:"omitempty,oneof=default low_vol income custom"`
	Timeframe string   `json:"timeframe" validate:"omitempty,oneof=1y 3y 5y"`
	Frequency string   `json:"freq" validate:"omitempty,oneof=D W M"`
}

// JournalInput is one decision journal entry before persistence
type JournalInput struct {
	Category string   `json:"category" validate:"required,max=64"`
	Tickers  []string `json:"tickers" validate:"min=1,max=25,dive,ticker"`
	Profile  string   `json:"profile" validate:"omitempty,oneof=default low_vol income custom"`
	TopPick  string   `json:"top_pick" validate:"omitempty,ticker"`
	Action   string   `json:"action" validate:"required,oneof=BUY REJECT WATCH"`
	Note     string   `json:"note" validate:"max=1000"`
}

// NormalizeTickers splits comma/space separated input, upper-cases and
// de-duplicates while keeping first-seen order.
func NormalizeTickers(raw []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, item := range raw {
		for _, part := range strings.FieldsFunc(item, func(r rune) bool { return r == ',' || r == ' ' || r == ';' }) {
			sym := strings.ToUpper(strings.TrimSpace(part))
			if sym == "" || seen[sym] {
				continue
			}
			seen[sym] = true
			out = append(out, sym)
		}
	}
	return out
}

// Compare normalizes the input in place and validates it
func Compare(in *CompareInput) error {
	in.Tickers = NormalizeTickers(in.Tickers)
	in.Benchmark = strings.ToUpper(strings.TrimSpace(in.Benchmark))
	in.Profile = strings.ToLower(strings.TrimSpace(in.Profile))
	in.Timeframe = strings.ToLower(strings.TrimSpace(in.Timeframe))
	in.Frequency = strings.ToUpper(strings.TrimSpace(in.Frequency))
	return toValidationError(validate.Struct(in))
}

// Journal normalizes the input in place and validates it
func Journal(in *JournalInput) error {
	in.Tickers = NormalizeTickers(in.Tickers)
	in.Category = strings.TrimSpace(in.Category)
	in.Profile = strings.ToLower(strings.TrimSpace(in.Profile))
	in.TopPick = strings.ToUpper(strings.TrimSpace(in.TopPick))
	in.Action = strings.ToUpper(strings.TrimSpace(in.Action))
	return toValidationError(validate.Struct(in))
}

// toValidationError reports the first failing field as a contracts.ValidationError
func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return contracts.ValidationError{Field: "input", Message: err.Error()}
	}
	fe := verrs[0]
	return contracts.ValidationError{Field: fieldPath(fe), Message: message(fe)}
}

// fieldPath drops the struct name prefix: CompareInput.tickers[2] → tickers[2]
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "ticker":
		return fmt.Sprintf("invalid ticker %q (1-10 chars of A-Z, 0-9, '.', '-')", fe.Value())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("needs at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("allows at most %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
