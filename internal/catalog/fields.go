package catalog

import "strings"

// Attribute codes read for every item.
const (
	AttrName            = "name"
	AttrDescription     = "description"
	AttrURLKey          = "url_key"
	AttrStatus          = "status"
	AttrPrice           = "price"
	AttrSpecialPrice    = "special_price"
	AttrSpecialFromDate = "special_from_date"
	AttrSpecialToDate   = "special_to_date"
	AttrImage           = "image"
	AttrSmallImage      = "small_image"
	AttrThumbnail       = "thumbnail"
)

// BaseAttributes are the attribute codes always fetched.
var BaseAttributes = []string{
	AttrName,
	AttrDescription,
	AttrURLKey,
	AttrStatus,
	AttrPrice,
	AttrSpecialPrice,
	AttrSpecialFromDate,
	AttrSpecialToDate,
	AttrImage,
	AttrSmallImage,
	AttrThumbnail,
}

// baseFields are the feed keys an extra field may not shadow.
var baseFields = map[string]struct{}{
	"entity_id": {}, "type": {}, "children_entity_ids": {}, "categories": {},
	"sku": {}, "images": {}, "qty": {}, "is_in_stock": {}, "stores": {},
	"image": {}, "small_image": {}, "thumbnail": {}, "name": {}, "price": {},
	"url_key": {}, "description": {}, "status": {}, "store_id": {},
	"currency": {}, "display_price": {}, "special_price": {},
	"special_from_date": {}, "special_to_date": {},
}

// IsBaseField reports whether code is part of the fixed feed record.
func IsBaseField(code string) bool {
	_, ok := baseFields[code]
	return ok
}

// ExtraFields returns the configured codes that are not base fields, trimmed
// and deduplicated, in configuration order.
func ExtraFields(configured []string) []string {
	seen := make(map[string]struct{}, len(configured))
	out := make([]string, 0, len(configured))
	for _, c := range configured {
		c = strings.TrimSpace(c)
		if c == "" || IsBaseField(c) {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// ParseCodeList splits a comma separated setting value.
func ParseCodeList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}
