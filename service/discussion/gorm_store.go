package discussion

import (
	"context"
	"errors"

	"github.com/yawmintah/alumnet-server/cmd/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreatePost(ctx context.Context, authorID uint, content string) (*models.Post, error) {
	post := models.Post{
		AuthorID: authorID,
		Content:  content,
		IsActive: true,
	}

	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Preload("Author.Roles").First(&post, post.ID).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *GormStore) AppendReply(ctx context.Context, postID, authorID uint, text string) (*models.Reply, error) {
	reply := models.Reply{
		PostID:   postID,
		AuthorID: authorID,
		Text:     text,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockActivePost(tx, postID); err != nil {
			return err
		}
		return tx.Create(&reply).Error
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Preload("Author.Roles").First(&reply, reply.ID).Error; err != nil {
		return nil, err
	}
	return &reply, nil
}

// UpsertReaction replaces whatever reaction the user currently has on the
// post. A single INSERT ... ON CONFLICT against the (post_id, user_id)
// unique index keeps the replace atomic: a concurrent read never observes
// zero or two rows for the user.
func (s *GormStore) UpsertReaction(ctx context.Context, postID, userID uint, emoji string) ([]models.Reaction, error) {
	reaction := models.Reaction{
		PostID: postID,
		UserID: userID,
		Emoji:  emoji,
	}

	var reactions []models.Reaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockActivePost(tx, postID); err != nil {
			return err
		}

		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"emoji", "updated_at"}),
		}).Create(&reaction).Error
		if err != nil {
			return err
		}

		reactions, err = loadReactions(tx, postID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reactions, nil
}

func (s *GormStore) RemoveReaction(ctx context.Context, postID, userID uint) ([]models.Reaction, error) {
	var reactions []models.Reaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockActivePost(tx, postID); err != nil {
			return err
		}

		result := tx.
			Where("post_id = ? AND user_id = ?", postID, userID).
			Delete(&models.Reaction{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNoReaction
		}

		var err error
		reactions, err = loadReactions(tx, postID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reactions, nil
}

func (s *GormStore) FindActiveByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Preload("Author.Roles").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("replies.id ASC")
		}).
		Preload("Replies.Author.Roles").
		Preload("Reactions").
		First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

func (s *GormStore) ListActivePaginated(ctx context.Context, page, limit int) ([]models.Post, int64, error) {
	var posts []models.Post
	var total int64

	query := s.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("is_active = ?", true)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Author.Roles").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("replies.id ASC")
		}).
		Preload("Replies.Author.Roles").
		Preload("Reactions").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}

	return posts, total, nil
}

func (s *GormStore) FindUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Roles").First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// lockActivePost takes a FOR UPDATE lock on the post row inside the
// caller's transaction. A concurrent deactivation blocks on the lock, so
// the activity check still holds when the guarded write lands.
func lockActivePost(tx *gorm.DB, postID uint) error {
	var post models.Post
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("is_active = ?", true).
		First(&post, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrPostNotFound
	}
	return err
}

func loadReactions(tx *gorm.DB, postID uint) ([]models.Reaction, error) {
	var reactions []models.Reaction
	err := tx.
		Where("post_id = ?", postID).
		Order("id ASC").
		Find(&reactions).Error
	if err != nil {
		return nil, err
	}
	return reactions, nil
}
