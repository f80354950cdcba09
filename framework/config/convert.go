package config

import (
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// ParseInterval parses a time interval: a number with an optional s, m, h
// or d suffix ("1.5s", "10m", "2h", "1d"). A bare number is milliseconds.
// Anything else is tried as a Go duration ("1h30m", "250ms").
func ParseInterval(s string) (time.Duration, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	factor := time.Millisecond
	num := s
	switch s[len(s)-1] {
	case 's':
		factor, num = time.Second, s[:len(s)-1]
	case 'm':
		factor, num = time.Minute, s[:len(s)-1]
	case 'h':
		factor, num = time.Hour, s[:len(s)-1]
	case 'd':
		factor, num = 24*time.Hour, s[:len(s)-1]
	}
	if v, err := strconv.ParseFloat(num, 64); err == nil {
		return scale(v, factor)
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, true
	}
	return 0, false
}

// scale multiplies v by unit, reporting false when the result does not fit
// in a time.Duration.
func scale(v float64, unit time.Duration) (time.Duration, bool) {
	f := v * float64(unit)
	if math.IsNaN(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return time.Duration(f), true
}

// intervalDecodeHook converts interval strings and millisecond numbers to
// time.Duration.
func intervalDecodeHook() mapstructure.DecodeHookFuncType {
	durationType := reflect.TypeOf(time.Duration(0))
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != durationType || from == durationType {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			d, ok := ParseInterval(v)
			if !ok {
				return nil, &strconv.NumError{Func: "ParseInterval", Num: v, Err: strconv.ErrSyntax}
			}
			return d, nil
		case int:
			return time.Duration(v) * time.Millisecond, nil
		case int64:
			return time.Duration(v) * time.Millisecond, nil
		case float64:
			d, ok := scale(v, time.Millisecond)
			if !ok {
				return nil, &strconv.NumError{Func: "ParseInterval", Num: strconv.FormatFloat(v, 'g', -1, 64), Err: strconv.ErrRange}
			}
			return d, nil
		default:
			return data, nil
		}
	}
}

// Convert decodes raw into typ with weak typing ("42" → 42, "true" → true,
// "a,b" → []string). It reports false when raw cannot be represented as
// typ. A nil typ returns raw unchanged.
func Convert(raw any, typ reflect.Type) (any, bool) {
	if raw == nil {
		return nil, false
	}
	if typ == nil || reflect.TypeOf(raw).AssignableTo(typ) {
		return raw, true
	}
	out := reflect.New(typ)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			intervalDecodeHook(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           out.Interface(),
	})
	if err != nil {
		return nil, false
	}
	if err := dec.Decode(raw); err != nil {
		return nil, false
	}
	return out.Elem().Interface(), true
}
