package discussion

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/yawmintah/alumnet-server/cmd/models"
)

// memoryStore implements Store for tests, mirroring the gorm store's
// contract: per-post atomic mutations, at most one reaction per
// (post, user), replies in append order.
type memoryStore struct {
	mu     sync.Mutex
	users  map[uint]*models.User
	posts  map[uint]*models.Post
	nextID uint
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users: make(map[uint]*models.User),
		posts: make(map[uint]*models.Post),
	}
}

func (s *memoryStore) addUser(id uint, firstName, surname, batch string, roles ...models.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := &models.User{
		FirstName: firstName,
		Surname:   surname,
		Batch:     batch,
		Roles:     roles,
	}
	user.ID = id
	s.users[id] = user
}

func (s *memoryStore) deactivatePost(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if post, ok := s.posts[id]; ok {
		post.IsActive = false
	}
}

func (s *memoryStore) CreatePost(ctx context.Context, authorID uint, content string) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	post := &models.Post{
		AuthorID: authorID,
		Content:  content,
		IsActive: true,
		Author:   s.users[authorID],
	}
	post.ID = s.nextID
	post.CreatedAt = time.Now()
	s.posts[post.ID] = post

	snapshot := *post
	return &snapshot, nil
}

func (s *memoryStore) AppendReply(ctx context.Context, postID, authorID uint, text string) (*models.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok || !post.IsActive {
		return nil, ErrPostNotFound
	}

	s.nextID++
	reply := models.Reply{
		PostID:   postID,
		AuthorID: authorID,
		Text:     text,
		Author:   s.users[authorID],
	}
	reply.ID = s.nextID
	reply.CreatedAt = time.Now()
	post.Replies = append(post.Replies, reply)

	snapshot := reply
	return &snapshot, nil
}

func (s *memoryStore) UpsertReaction(ctx context.Context, postID, userID uint, emoji string) ([]models.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok || !post.IsActive {
		return nil, ErrPostNotFound
	}

	replaced := false
	for i := range post.Reactions {
		if post.Reactions[i].UserID == userID {
			post.Reactions[i].Emoji = emoji
			replaced = true
			break
		}
	}
	if !replaced {
		s.nextID++
		post.Reactions = append(post.Reactions, models.Reaction{
			ID:     s.nextID,
			PostID: postID,
			UserID: userID,
			Emoji:  emoji,
		})
	}

	return append([]models.Reaction(nil), post.Reactions...), nil
}

func (s *memoryStore) RemoveReaction(ctx context.Context, postID, userID uint) ([]models.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok || !post.IsActive {
		return nil, ErrPostNotFound
	}

	for i := range post.Reactions {
		if post.Reactions[i].UserID == userID {
			post.Reactions = append(post.Reactions[:i], post.Reactions[i+1:]...)
			return append([]models.Reaction(nil), post.Reactions...), nil
		}
	}
	return nil, ErrNoReaction
}

func (s *memoryStore) FindActiveByID(ctx context.Context, id uint) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[id]
	if !ok || !post.IsActive {
		return nil, ErrPostNotFound
	}

	snapshot := *post
	snapshot.Replies = append([]models.Reply(nil), post.Replies...)
	snapshot.Reactions = append([]models.Reaction(nil), post.Reactions...)
	return &snapshot, nil
}

func (s *memoryStore) ListActivePaginated(ctx context.Context, page, limit int) ([]models.Post, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active []models.Post
	for _, post := range s.posts {
		if post.IsActive {
			active = append(active, *post)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})

	total := int64(len(active))
	start := (page - 1) * limit
	if start > len(active) {
		start = len(active)
	}
	end := start + limit
	if end > len(active) {
		end = len(active)
	}
	return active[start:end], total, nil
}

func (s *memoryStore) FindUser(ctx context.Context, id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// failingStore simulates persistence failures on every mutation.
type failingStore struct {
	Store
}

var errStorageDown = errors.New("storage unavailable")

func (f failingStore) CreatePost(ctx context.Context, authorID uint, content string) (*models.Post, error) {
	return nil, errStorageDown
}

func (f failingStore) AppendReply(ctx context.Context, postID, authorID uint, text string) (*models.Reply, error) {
	return nil, errStorageDown
}

func (f failingStore) UpsertReaction(ctx context.Context, postID, userID uint, emoji string) ([]models.Reaction, error) {
	return nil, errStorageDown
}
