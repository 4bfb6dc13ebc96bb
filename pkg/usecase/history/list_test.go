package history_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/pollen/pkg/model"
	"github.com/m-mizutani/pollen/pkg/usecase/history"
)

func TestList(t *testing.T) {
	h := model.History{
		newRecord("5", model.KindImage, "e"),
		newRecord("4", model.KindText, "d"),
		newRecord("3", model.KindImage, "c"),
		newRecord("2", model.KindText, "b"),
		newRecord("1", model.KindText, "a"),
	}

	testCases := []struct {
		name string
		opts history.ListOptions
		want []string
	}{
		{name: "all", opts: history.ListOptions{}, want: []string{"e", "d", "c", "b", "a"}},
		{name: "limit", opts: history.ListOptions{Limit: 2}, want: []string{"e", "d"}},
		{name: "offset", opts: history.ListOptions{Offset: 3}, want: []string{"b", "a"}},
		{name: "offset past end", opts: history.ListOptions{Offset: 10}, want: []string{}},
		{name: "kind", opts: history.ListOptions{Kind: model.KindText}, want: []string{"d", "b", "a"}},
		{name: "kind and limit", opts: history.ListOptions{Kind: model.KindImage, Limit: 1}, want: []string{"e"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := history.List(h, tc.opts)
			prompts := make([]string, 0, len(got))
			for _, r := range got {
				prompts = append(prompts, r.Prompt)
			}
			gt.Equal(t, prompts, tc.want)
		})
	}
}
