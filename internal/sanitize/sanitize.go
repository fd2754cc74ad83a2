// Package sanitize coerces and validates provider and model fields before a
// configuration document is sent to the gateway. Malformed fields are
// dropped, never defaulted, so the gateway applies its own defaults. Every
// function is idempotent.
package sanitize

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/flemzord/sclaw-console/internal/confdoc"
)

// MaxTokensFields lists the accepted values of compat.maxTokensField.
var MaxTokensFields = []string{"max_tokens", "max_completion_tokens"}

// Number coerces v to a finite number. nil, empty strings, booleans and
// anything that does not parse to a finite value are reported absent.
func Number(v any) (float64, bool) {
	switch val := confdoc.Normalize(v).(type) {
	case nil, bool:
		return 0, false
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0, false
		}
		return val, true
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Enum returns v when it is a string member of allowed.
func Enum(v any, allowed []string) (string, bool) {
	s, ok := v.(string)
	if !ok || !slices.Contains(allowed, s) {
		return "", false
	}
	return s, true
}

// Cost sanitizes a model cost object. It is absent when neither input nor
// output is recoverable; otherwise a missing input or output becomes 0 and
// invalid cache prices are dropped.
func Cost(v any) (map[string]any, bool) {
	m := confdoc.AsMap(v)
	if m == nil {
		return nil, false
	}
	in, inOK := Number(m["input"])
	out, outOK := Number(m["output"])
	if !inOK && !outOK {
		return nil, false
	}
	cost := map[string]any{"input": in, "output": out}
	if n, ok := Number(m["cacheRead"]); ok {
		cost["cacheRead"] = n
	}
	if n, ok := Number(m["cacheWrite"]); ok {
		cost["cacheWrite"] = n
	}
	return cost, true
}

// Model returns a sanitized copy of a model entry.
func Model(m map[string]any) map[string]any {
	out := confdoc.AsMap(confdoc.CloneValue(m))
	if out == nil {
		return map[string]any{}
	}

	for _, key := range []string{"contextWindow", "maxTokens"} {
		setOrDrop(out, key, numberValue(out[key]))
	}

	if cost, ok := Cost(out["cost"]); ok {
		out["cost"] = cost
	} else {
		delete(out, "cost")
	}

	if compat := confdoc.AsMap(out["compat"]); compat != nil {
		if field, ok := Enum(compat["maxTokensField"], MaxTokensFields); ok {
			compat["maxTokensField"] = field
		} else {
			delete(compat, "maxTokensField")
		}
		if len(compat) == 0 {
			delete(out, "compat")
		}
	} else {
		delete(out, "compat")
	}

	dropEmptyString(out, "name")
	return out
}

// Provider returns a sanitized copy of a provider entry.
func Provider(p map[string]any) map[string]any {
	out := confdoc.AsMap(confdoc.CloneValue(p))
	if out == nil {
		return map[string]any{}
	}

	if s, ok := out["baseUrl"].(string); ok {
		out["baseUrl"] = strings.TrimSpace(s)
	}
	dropEmptyString(out, "apiKey")
	dropEmptyString(out, "auth")
	dropEmptyString(out, "api")

	if headers := confdoc.AsMap(out["headers"]); headers != nil {
		for k, v := range headers {
			if s, ok := v.(string); !ok || strings.TrimSpace(s) == "" || strings.TrimSpace(k) == "" {
				delete(headers, k)
			}
		}
		if len(headers) == 0 {
			delete(out, "headers")
		} else {
			out["headers"] = headers
		}
	} else {
		delete(out, "headers")
	}

	if raw, present := out["models"]; present {
		models := make([]any, 0)
		for _, item := range confdoc.AsSlice(raw) {
			if m := confdoc.AsMap(item); m != nil {
				models = append(models, Model(m))
			}
		}
		out["models"] = models
	}
	return out
}

// Providers sanitizes a providers map; entries that are not objects or have
// a blank id are dropped.
func Providers(providers map[string]any) map[string]any {
	out := make(map[string]any, len(providers))
	for id, v := range providers {
		if strings.TrimSpace(id) == "" {
			continue
		}
		if m := confdoc.AsMap(v); m != nil {
			out[id] = Provider(m)
		}
	}
	return out
}

func numberValue(v any) any {
	if n, ok := Number(v); ok {
		return n
	}
	return nil
}

func setOrDrop(m map[string]any, key string, v any) {
	if v == nil {
		delete(m, key)
		return
	}
	m[key] = v
}

func dropEmptyString(m map[string]any, key string) {
	v, ok := m[key]
	if !ok {
		return
	}
	if s, isString := v.(string); v == nil || (isString && strings.TrimSpace(s) == "") {
		delete(m, key)
	}
}
