package history

import (
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pollen/pkg/model"
	"github.com/tidwall/gjson"
)

// LegacyKey is the key of the version 1 layout: a bare JSON array of
// {id, type, prompt, result, model, width, height, seed, ts}
const LegacyKey = "pollinations_studio_history_v1"

func migrateLegacy(data []byte) (model.History, error) {
	if !gjson.ValidBytes(data) {
		return nil, goerr.Wrap(ErrCorrupted, "legacy history is not valid JSON")
	}

	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, goerr.Wrap(ErrCorrupted, "legacy history is not an array",
			goerr.V("type", root.Type.String()))
	}

	records := make(model.History, 0, len(root.Array()))
	used := make(map[model.RecordID]struct{})
	root.ForEach(func(_, item gjson.Result) bool {
		r := legacyRecord(item)
		if r == nil {
			return true
		}
		// legacy ids are creation milliseconds and may repeat
		r.ID = uniqueID(r.ID, used)
		used[r.ID] = struct{}{}
		records = append(records, r)
		return true
	})

	return sanitize(records), nil
}

func legacyRecord(item gjson.Result) *model.Record {
	if !item.IsObject() {
		return nil
	}

	id := item.Get("id")
	if !id.Exists() || id.String() == "" {
		return nil
	}
	rid := id.String()
	if id.Type == gjson.Number {
		rid = strconv.FormatInt(id.Int(), 10)
	}

	r := &model.Record{
		ID:     model.RecordID(rid),
		Kind:   model.Kind(item.Get("type").String()),
		Prompt: item.Get("prompt").String(),
		Result: item.Get("result").String(),
		Model:  item.Get("model").String(),
		Width:  int(item.Get("width").Int()),
		Height: int(item.Get("height").Int()),
		Seed:   item.Get("seed").String(),
	}

	if ts := item.Get("ts"); ts.Exists() {
		r.CreatedAt = time.UnixMilli(ts.Int()).UTC()
	}

	return r
}

func uniqueID(id model.RecordID, used map[model.RecordID]struct{}) model.RecordID {
	if _, ok := used[id]; !ok {
		return id
	}
	for n := 1; ; n++ {
		candidate := model.RecordID(string(id) + "-" + strconv.Itoa(n))
		if _, ok := used[candidate]; !ok {
			return candidate
		}
	}
}
