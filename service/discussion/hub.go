package discussion

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Client events coming off a connection.
type clientEvent struct {
	Event   string `json:"event"`
	Content string `json:"content,omitempty"`
	PostID  uint   `json:"postId,omitempty"`
	Text    string `json:"text,omitempty"`
	Emoji   string `json:"emoji,omitempty"`
}

type serverEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

type replyBroadcast struct {
	PostID uint      `json:"postId"`
	Reply  ReplyView `json:"reply"`
}

type reactionBroadcast struct {
	PostID    uint           `json:"postId"`
	Reactions map[string]int `json:"reactions"`
	UserID    uint           `json:"userId"`
	Emoji     string         `json:"emoji,omitempty"`
}

// connection is one joined member of the room. The user id is bound at
// handshake time and never changes for the life of the connection.
type connection struct {
	id     string
	userID uint
	send   chan []byte
}

// Hub coordinates the single shared discussion room: it applies
// connection events against the store and fans the confirmed result out
// to every member. The hub holds no lock across a store call; ordering
// of broadcasts follows write confirmation, not request arrival.
type Hub struct {
	store Store

	mu    sync.RWMutex
	conns map[string]*connection
}

func NewHub(store Store) *Hub {
	return &Hub{
		store: store,
		conns: make(map[string]*connection),
	}
}

func (h *Hub) register(userID uint) *connection {
	c := &connection{
		id:     uuid.NewString(),
		userID: userID,
		send:   make(chan []byte, 256),
	}

	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c.id]; ok {
		delete(h.conns, c.id)
		close(c.send)
	}
}

func (h *Hub) memberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) dispatch(ctx context.Context, c *connection, ev clientEvent) {
	switch ev.Event {
	case "new-post":
		h.CreatePost(ctx, c, ev.Content)
	case "new-reply":
		h.AddReply(ctx, c, ev.PostID, ev.Text)
	case "reaction":
		h.SetReaction(ctx, c, ev.PostID, ev.Emoji)
	default:
		h.sendError(c, "unknown event")
	}
}

// CreatePost persists a new post for the connection's user and, once the
// write is confirmed, broadcasts the projected post to the whole room,
// the creator included.
func (h *Hub) CreatePost(ctx context.Context, c *connection, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		h.sendError(c, "content cannot be empty")
		return
	}

	post, err := h.store.CreatePost(ctx, c.userID, content)
	if err != nil {
		log.Printf("error saving post for user %d: %v", c.userID, err)
		h.sendError(c, "could not save post")
		return
	}

	h.broadcast(serverEvent{Event: "post-created", Data: ProjectPost(post)})
}

// AddReply appends a reply to an active post and broadcasts just the new
// reply, tagged with its parent post id.
func (h *Hub) AddReply(ctx context.Context, c *connection, postID uint, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		h.sendError(c, "text cannot be empty")
		return
	}

	reply, err := h.store.AppendReply(ctx, postID, c.userID, text)
	if errors.Is(err, ErrPostNotFound) {
		h.sendError(c, "post not found")
		return
	}
	if err != nil {
		log.Printf("error saving reply for user %d on post %d: %v", c.userID, postID, err)
		h.sendError(c, "could not save reply")
		return
	}

	h.broadcast(serverEvent{Event: "reply-added", Data: replyBroadcast{
		PostID: postID,
		Reply:  ProjectReply(reply),
	}})
}

// SetReaction upserts the user's reaction on a post: the new emoji
// replaces any previous one by the same user. The broadcast carries the
// tally recomputed from the stored reaction set after the write.
func (h *Hub) SetReaction(ctx context.Context, c *connection, postID uint, emoji string) {
	if !ValidEmoji(emoji) {
		h.sendError(c, "invalid emoji")
		return
	}

	reactions, err := h.store.UpsertReaction(ctx, postID, c.userID, emoji)
	if errors.Is(err, ErrPostNotFound) {
		h.sendError(c, "post not found")
		return
	}
	if err != nil {
		log.Printf("error saving reaction for user %d on post %d: %v", c.userID, postID, err)
		h.sendError(c, "could not save reaction")
		return
	}

	h.broadcast(serverEvent{Event: "reaction-updated", Data: reactionBroadcast{
		PostID:    postID,
		Reactions: Tally(reactions),
		UserID:    c.userID,
		Emoji:     emoji,
	}})
}

// broadcast fans an event out to the membership as it stands right now.
// Sends happen under the membership read lock so a concurrent unregister
// cannot close a channel mid-send; the sends are non-blocking, so slow
// consumers get the event dropped rather than stalling the room.
func (h *Hub) broadcast(ev serverEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("error marshaling %s event: %v", ev.Event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.conns {
		select {
		case c.send <- payload:
		default:
			log.Printf("dropping %s event for slow connection %s", ev.Event, c.id)
		}
	}
}

// sendError notifies only the originating connection.
func (h *Hub) sendError(c *connection, message string) {
	payload, err := json.Marshal(serverEvent{
		Event: "error",
		Data:  map[string]string{"message": message},
	})
	if err != nil {
		log.Printf("error marshaling error event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.conns[c.id]; !ok {
		return
	}
	select {
	case c.send <- payload:
	default:
		log.Printf("dropping error event for slow connection %s", c.id)
	}
}
