package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pollen/pkg/model"
)

const promptPreview = 48

func preview(s string) string {
	r := []rune(s)
	if len(r) <= promptPreview {
		return s
	}
	return string(r[:promptPreview-1]) + "…"
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal output")
	}
	fmt.Fprintf(w, "%s\n", string(data))
	return nil
}

func printHistory(w io.Writer, h model.History) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tCREATED\tPROMPT")
	for _, r := range h {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Kind, r.CreatedAt.Local().Format("2006-01-02 15:04"), preview(r.Prompt))
	}
	_ = tw.Flush()
}
