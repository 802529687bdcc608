package discussion

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/yawmintah/alumnet-server/cmd/utils"
	"gorm.io/gorm"
)

// Handler serves the discussion board on both paths: the websocket room
// and the paginated HTTP surface. Both go through the same store and the
// same projection, so the two paths always observe identical state.
type Handler struct {
	store Store
	hub   *Hub
}

func NewHandler(db *gorm.DB) *Handler {
	store := NewGormStore(db)
	return &Handler{
		store: store,
		hub:   NewHub(store),
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws", h.HandleWebSocket)

	router.HandleFunc("/posts", h.GetPosts).Methods("GET")
	router.HandleFunc("/posts", utils.AuthMiddleware(h.CreatePost)).Methods("POST")
	router.HandleFunc("/posts/{id}/replies", utils.AuthMiddleware(h.AddReply)).Methods("POST")
	router.HandleFunc("/posts/{id}/reactions", utils.AuthMiddleware(h.SetReaction)).Methods("POST")
	router.HandleFunc("/posts/{id}/reactions", utils.AuthMiddleware(h.RemoveReaction)).Methods("DELETE")
}

// GetPosts retrieves the active posts, newest first, with pagination
func (h *Handler) GetPosts(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 10
	}

	posts, total, err := h.store.ListActivePaginated(r.Context(), page, limit)
	if err != nil {
		http.Error(w, "Error retrieving posts", http.StatusInternalServerError)
		return
	}

	views := make([]PostView, 0, len(posts))
	for i := range posts {
		views = append(views, ProjectPost(&posts[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"posts":       views,
		"total":       total,
		"page":        page,
		"page_size":   limit,
		"total_pages": (total + int64(limit) - 1) / int64(limit),
	})
}

// CreatePost creates a post over HTTP with the same invariants as the
// new-post room event, and notifies the room once the write is confirmed.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	content := strings.TrimSpace(body.Content)
	if content == "" {
		http.Error(w, "Content is required", http.StatusBadRequest)
		return
	}

	post, err := h.store.CreatePost(r.Context(), userID, content)
	if err != nil {
		http.Error(w, "Error creating post", http.StatusInternalServerError)
		return
	}

	view := ProjectPost(post)
	h.hub.broadcast(serverEvent{Event: "post-created", Data: view})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(view)
}

// AddReply appends a reply over HTTP, same invariants as new-reply.
func (h *Handler) AddReply(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	postID, err := parsePostID(r)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	text := strings.TrimSpace(body.Text)
	if text == "" {
		http.Error(w, "Text is required", http.StatusBadRequest)
		return
	}

	reply, err := h.store.AppendReply(r.Context(), postID, userID, text)
	if errors.Is(err, ErrPostNotFound) {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Error creating reply", http.StatusInternalServerError)
		return
	}

	view := ProjectReply(reply)
	h.hub.broadcast(serverEvent{Event: "reply-added", Data: replyBroadcast{
		PostID: postID,
		Reply:  view,
	}})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(view)
}

// SetReaction upserts the caller's reaction over HTTP, same invariants
// as the reaction room event.
func (h *Handler) SetReaction(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	postID, err := parsePostID(r)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	var body struct {
		Emoji string `json:"emoji"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !ValidEmoji(body.Emoji) {
		http.Error(w, "Invalid emoji", http.StatusBadRequest)
		return
	}

	reactions, err := h.store.UpsertReaction(r.Context(), postID, userID, body.Emoji)
	if errors.Is(err, ErrPostNotFound) {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Error saving reaction", http.StatusInternalServerError)
		return
	}

	tally := Tally(reactions)
	h.hub.broadcast(serverEvent{Event: "reaction-updated", Data: reactionBroadcast{
		PostID:    postID,
		Reactions: tally,
		UserID:    userID,
		Emoji:     body.Emoji,
	}})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"post_id":   postID,
		"reactions": tally,
	})
}

// RemoveReaction deletes the caller's reaction if present; having none
// to remove is reported, not silently ignored.
func (h *Handler) RemoveReaction(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	postID, err := parsePostID(r)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	reactions, err := h.store.RemoveReaction(r.Context(), postID, userID)
	if errors.Is(err, ErrPostNotFound) {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}
	if errors.Is(err, ErrNoReaction) {
		http.Error(w, "No reaction found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Error removing reaction", http.StatusInternalServerError)
		return
	}

	tally := Tally(reactions)
	h.hub.broadcast(serverEvent{Event: "reaction-updated", Data: reactionBroadcast{
		PostID:    postID,
		Reactions: tally,
		UserID:    userID,
	}})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"post_id":   postID,
		"reactions": tally,
	})
}

func parsePostID(r *http.Request) (uint, error) {
	postID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(postID), nil
}
