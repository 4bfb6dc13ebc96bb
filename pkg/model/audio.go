package model

// AudioItem is an entry of the experimental audio library
type AudioItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}
