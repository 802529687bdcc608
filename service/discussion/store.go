package discussion

import (
	"context"
	"errors"

	"github.com/yawmintah/alumnet-server/cmd/models"
)

// AllowedEmojis is the fixed set of reactions the board accepts.
var AllowedEmojis = []string{"👍", "❤️", "🙏", "🏃", "😊"}

func ValidEmoji(emoji string) bool {
	for _, e := range AllowedEmojis {
		if e == emoji {
			return true
		}
	}
	return false
}

var (
	ErrPostNotFound = errors.New("post not found")
	ErrNoReaction   = errors.New("no reaction found")
	ErrUserNotFound = errors.New("user not found")
)

// Store is the persistence contract the room coordinator and the HTTP
// surface share. Every mutation is atomic with respect to a single post:
// concurrent reply appends serialize on the insert, and a reaction upsert
// never leaves a window where a user has zero or two rows on a post.
//
// Returned posts and replies come with their author (and the author's
// roles) loaded, ready for projection.
type Store interface {
	CreatePost(ctx context.Context, authorID uint, content string) (*models.Post, error)
	AppendReply(ctx context.Context, postID, authorID uint, text string) (*models.Reply, error)
	UpsertReaction(ctx context.Context, postID, userID uint, emoji string) ([]models.Reaction, error)
	RemoveReaction(ctx context.Context, postID, userID uint) ([]models.Reaction, error)
	FindActiveByID(ctx context.Context, id uint) (*models.Post, error)
	ListActivePaginated(ctx context.Context, page, limit int) ([]models.Post, int64, error)
	FindUser(ctx context.Context, id uint) (*models.User, error)
}
