package attrs

import "fmt"

// ExtractString returns the value logged under key in a [k1, v1, k2, v2, ...]
// attribute list. Strings and fmt.Stringers are accepted; anything else, or a
// missing key, yields "".
func ExtractString(attrs []any, key string) string {
	for i := 0; i+1 < len(attrs); i += 2 {
		if k, ok := attrs[i].(string); !ok || k != key {
			continue
		}
		switch v := attrs[i+1].(type) {
		case string:
			return v
		case fmt.Stringer:
			return v.String()
		}
	}
	return ""
}
