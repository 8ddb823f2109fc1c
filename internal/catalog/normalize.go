package catalog

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/cesargomez89/iptvcatalog/internal/domain"
)

// itemSource extracts the stream items of one category entry.
type itemSource struct {
	name    string
	extract func(entry any) ([]any, bool)
}

// itemSources are tried in order. The first source that yields an array
// wins, even an empty one.
var itemSources = []itemSource{
	{name: "streams", extract: func(entry any) ([]any, bool) {
		return arrayField(entry, "streams")
	}},
	{name: "self", extract: func(entry any) ([]any, bool) {
		items, ok := entry.([]any)
		return items, ok
	}},
	{name: "items", extract: func(entry any) ([]any, bool) {
		return arrayField(entry, "items")
	}},
}

func arrayField(entry any, key string) ([]any, bool) {
	m, ok := entry.(map[string]any)
	if !ok {
		return nil, false
	}
	items, ok := m[key].([]any)
	return items, ok
}

// resolveItems returns the item list of a category entry and the name of the
// source it came from. ok is false when no source holds an array.
func resolveItems(entry any) (items []any, source string, ok bool) {
	for _, s := range itemSources {
		if items, ok := s.extract(entry); ok {
			return items, s.name, true
		}
	}
	return nil, "", false
}

func firstString(m map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := domain.StringValue(m[k]); ok {
			return v, true
		}
	}
	return "", false
}

// positionalPrefix marks category ids derived from an entry's position.
const positionalPrefix = "#"

// rawCategoryID returns the id of a category entry. Entries without one get
// positionalPrefix followed by index, and positional reports true.
func rawCategoryID(entry any, index int) (id string, positional bool) {
	if e, ok := entry.(map[string]any); ok {
		if id, ok := firstString(e, "category_id", "categoryId"); ok {
			return id, false
		}
	}
	return positionalPrefix + strconv.Itoa(index), true
}

// normalizeCategory builds the category row of one entry. index is the
// entry's position in its list and stands in for a missing category id.
func normalizeCategory(streamType domain.StreamType, entry any, index int) (domain.Category, bool) {
	var name string
	hint := 0
	rawID, _ := rawCategoryID(entry, index)

	switch e := entry.(type) {
	case map[string]any:
		name, _ = firstString(e, "category_name", "categoryName")
		if s, ok := firstString(e, "stream_count", "streamCount", "count"); ok {
			if n, err := strconv.Atoi(s); err == nil {
				hint = n
			}
		}
	case []any:
	default:
		return domain.Category{}, false
	}

	count := hint
	if streams, ok := arrayField(entry, "streams"); ok {
		count = len(streams)
	}

	return domain.Category{
		ID:           domain.CategoryKey(streamType, rawID),
		CategoryID:   rawID,
		CategoryName: name,
		StreamType:   streamType,
		StreamCount:  count,
	}, true
}

// normalizeStream turns one source item into a stream of category. The
// identifier comes from stream_id, or series_id when stream_id is absent.
func normalizeStream(category domain.Category, item any) (domain.Stream, error) {
	m, ok := item.(map[string]any)
	if !ok {
		return domain.Stream{}, fmt.Errorf("%w: item is %T, not an object", domain.ErrMissingStreamID, item)
	}

	id, ok := firstString(m, "stream_id", "series_id")
	if !ok {
		return domain.Stream{}, domain.ErrMissingStreamID
	}
	name, _ := firstString(m, "name", "title")

	return domain.Stream{
		ID:         domain.StreamKey(category.CategoryID, id),
		CategoryID: category.ID,
		StreamID:   id,
		StreamType: category.StreamType,
		Name:       name,
		Data:       domain.JSONObject(m),
	}, nil
}

// orderStreamTypes returns the known types present in the given maps in
// their canonical order, followed by any other types alphabetically.
func orderStreamTypes(sources ...map[string]any) []domain.StreamType {
	present := make(map[string]bool)
	for _, src := range sources {
		for k := range src {
			present[k] = true
		}
	}

	var ordered []domain.StreamType
	for _, t := range domain.KnownStreamTypes {
		if present[string(t)] {
			ordered = append(ordered, t)
			delete(present, string(t))
		}
	}

	var rest []string
	for k := range present {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	for _, k := range rest {
		ordered = append(ordered, domain.StreamType(k))
	}
	return ordered
}
