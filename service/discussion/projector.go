package discussion

import (
	"time"

	"github.com/samber/lo"
	"github.com/yawmintah/alumnet-server/cmd/models"
)

// PostView is the wire shape of a post, identical on the websocket and
// HTTP paths. Timestamps are RFC3339 UTC so both paths sort and compare
// byte-identically.
type PostView struct {
	ID          uint           `json:"id"`
	Name        string         `json:"name"`
	Surname     string         `json:"surname"`
	Role        string         `json:"role"`
	Batch       string         `json:"batch"`
	Content     string         `json:"content"`
	Timestamp   string         `json:"timestamp"`
	Reactions   map[string]int `json:"reactions"`
	Replies     []ReplyView    `json:"replies"`
	ShowReplies bool           `json:"showReplies"`
}

type ReplyView struct {
	Name      string `json:"name"`
	Surname   string `json:"surname"`
	Role      string `json:"role"`
	Batch     string `json:"batch"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

func ProjectPost(post *models.Post) PostView {
	replies := make([]ReplyView, 0, len(post.Replies))
	for i := range post.Replies {
		replies = append(replies, ProjectReply(&post.Replies[i]))
	}

	name, surname, role, batch := authorDisplay(post.Author)
	return PostView{
		ID:          post.ID,
		Name:        name,
		Surname:     surname,
		Role:        role,
		Batch:       batch,
		Content:     post.Content,
		Timestamp:   formatTimestamp(post.CreatedAt),
		Reactions:   Tally(post.Reactions),
		Replies:     replies,
		ShowReplies: false,
	}
}

func ProjectReply(reply *models.Reply) ReplyView {
	name, surname, role, batch := authorDisplay(reply.Author)
	return ReplyView{
		Name:      name,
		Surname:   surname,
		Role:      role,
		Batch:     batch,
		Text:      reply.Text,
		Timestamp: formatTimestamp(reply.CreatedAt),
	}
}

// Tally recounts the reaction set from scratch on every call; counts are
// never cached or carried over. Every allowed emoji appears in the map,
// zero included.
func Tally(reactions []models.Reaction) map[string]int {
	counts := lo.CountValues(lo.Map(reactions, func(r models.Reaction, _ int) string {
		return r.Emoji
	}))

	tally := make(map[string]int, len(AllowedEmojis))
	for _, emoji := range AllowedEmojis {
		tally[emoji] = counts[emoji]
	}
	return tally
}

func authorDisplay(author *models.User) (name, surname, role, batch string) {
	if author == nil {
		return "", "", "", ""
	}
	return author.FirstName, author.Surname, displayRole(author.Roles), author.Batch
}

// displayRole picks the user's display role. Role sets are unordered in
// storage, so the choice has to be made here: the role with the lowest id
// wins, which is the role assigned earliest.
func displayRole(roles []models.Role) string {
	if len(roles) == 0 {
		return ""
	}
	first := lo.MinBy(roles, func(a, b models.Role) bool {
		return a.ID < b.ID
	})
	return first.Name
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
