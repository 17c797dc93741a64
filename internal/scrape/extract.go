package scrape

import (
	"encoding/json"
	"strconv"
	"strings"
)

// idKeys are the key names the external workflow has used for the product
// identifier, tried in order.
var idKeys = []string{"productId", "productID", "id"}

// unwrapKeys are the single nesting levels under which the identifier may hide.
var unwrapKeys = []string{"data", "result", "payload"}

// ExtractProductID sniffs a webhook response body for a product identifier.
// Rules are tried in order: top-level keys first, then one unwrap level. The
// first structurally valid non-empty match wins; "" when none.
func ExtractProductID(body []byte) string {
	raw := strings.TrimSpace(string(body))
	if raw == "" {
		return ""
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return ""
	}

	if id := idFromDoc(doc); id != "" {
		return id
	}
	for _, key := range unwrapKeys {
		if nested, ok := doc[key].(map[string]any); ok {
			if id := idFromDoc(nested); id != "" {
				return id
			}
		}
	}
	return ""
}

func idFromDoc(doc map[string]any) string {
	for _, key := range idKeys {
		switch v := doc[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			if v != 0 {
				return strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
	}
	return ""
}
