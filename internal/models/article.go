package models

// Article is one fetched article. It is replaced wholesale when the reader
// moves to the next article and never mutated in place.
type Article struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Author  string `json:"author"`
	Date    string `json:"date"`
	Summary string `json:"summary"`
}

// ArticleDescriptor pairs the text, audio and reel sources of one navigable item.
type ArticleDescriptor struct {
	ArticleSource string `json:"article_source" yaml:"article"`
	AudioSource   string `json:"audio_source" yaml:"audio"`
	ReelSource    string `json:"reel_source" yaml:"reel"`
}

// AudioEdition is one audio source together with the articles it narrates,
// in catalog order.
type AudioEdition struct {
	AudioSource    string   `json:"audio_source"`
	ArticleSources []string `json:"article_sources"`
}

// NextIndex advances a cursor cyclically over a sequence of the given length.
func NextIndex(index, length int) int {
	if length <= 0 {
		return 0
	}
	next := (index + 1) % length
	if next < 0 {
		next += length
	}
	return next
}
