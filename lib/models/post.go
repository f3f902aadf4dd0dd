package models

// DefaultArticlePrefix is the public article URL without the trailing id.
const DefaultArticlePrefix = "https://playstartrekonline.com/en/news/article/"

// Post is a news item rendered for one channel.
type Post struct {
	ArticleID    ArticleID
	Title        string
	URL          string
	Summary      string
	ThumbnailURL string
	Icons        []string
}

func NewPost(item NewsItem, platforms Platforms, articlePrefix, staticDir string) Post {
	return Post{
		ArticleID:    item.ID,
		Title:        item.Title,
		URL:          ArticleURL(articlePrefix, item.ID),
		Summary:      item.Summary,
		ThumbnailURL: item.ThumbnailURL(),
		Icons:        RenderIcons(item.Platforms, platforms, staticDir),
	}
}

// PrimaryIcon is the single icon attached to a delivered post.
func (p Post) PrimaryIcon() string {
	if len(p.Icons) == 0 {
		return ""
	}
	return p.Icons[0]
}

func ArticleURL(prefix string, id ArticleID) string {
	return prefix + id.String()
}

// PostedMessage is the part of a channel message that can carry article ids.
type PostedMessage struct {
	Content   string
	EmbedURLs []string
}

type WikiCard struct {
	Title       string
	Description string
	Footer      string
	Color       int
}
