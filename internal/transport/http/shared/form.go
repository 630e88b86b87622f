package shared

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"

	"leaveportal/internal/platform/validation"
)

const InvalidFormMessage = "Please check the values you entered"

var decimalType = reflect.TypeOf(decimal.Decimal{})

// decimalHook parses day figures such as "2.5"; a blank field is zero.
func decimalHook(from, to reflect.Type, data any) (any, error) {
	if to != decimalType || from.Kind() != reflect.String {
		return data, nil
	}
	raw := strings.TrimSpace(data.(string))
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

// DecodeForm copies the parsed form into dst using its `form` tags. Numbers,
// decimals and booleans are converted from their text; checkboxes post "true".
func DecodeForm(r *http.Request, dst any) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	input := make(map[string]any, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) == 0 {
			continue
		}
		input[key] = strings.TrimSpace(values[len(values)-1])
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "form",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.DecodeHookFuncType(decimalHook),
		Result:           dst,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(input); err != nil {
		v := validation.New()
		v.Add("form", InvalidFormMessage)
		return v.Err()
	}
	return nil
}
