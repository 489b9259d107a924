package store

import (
	"context"
	"sort"

	"confide/internal/featureflags"
	"confide/internal/models"
)

// CreateConfessionInput describes a new confession.
type CreateConfessionInput struct {
	Title    string
	Content  string
	Category models.ConfessionCategory
}

type confessionDeleted struct {
	ID string `json:"id"`
}

// CreateConfession posts to the feed.
func (s *Store) CreateConfession(ctx context.Context, actorID string, in CreateConfessionInput) (*models.Confession, error) {
	return result[*models.Confession](s.execute(ctx, OpCreateConfession, actorID, confessionPayload{
		Title:    in.Title,
		Content:  in.Content,
		Category: in.Category,
	}))
}

func validateConfession(p *confessionPayload) error {
	title, err := requireText("Title", p.Title, maxTitleLength)
	if err != nil {
		return err
	}
	if _, err := requireText("Content", p.Content, models.MaxMessageContentLength); err != nil {
		return err
	}
	p.Title = title
	return nil
}

func (s *Store) planCreateConfession(tx *txn, p confessionPayload) (func(), error) {
	author, err := s.st.user(tx.cmd.ActorID)
	if err != nil {
		return nil, err
	}
	if err := validateConfession(&p); err != nil {
		return nil, err
	}
	if p.Category == "" {
		p.Category = models.ConfessionCategoryOther
	}
	if !p.Category.Valid() {
		return nil, models.NewValidationError("Unknown confession category")
	}
	c := &models.Confession{
		ID:             tx.nextID(),
		Title:          p.Title,
		Content:        p.Content,
		Category:       p.Category,
		AuthorID:       author.ID,
		AuthorUsername: author.Username,
		CreatedAt:      tx.cmd.At,
		LikedBy:        models.IDSet{},
		SavedBy:        models.IDSet{},
		Comments:       []models.ConfessionComment{},
	}
	return func() {
		s.st.confessions[c.ID] = c
		tx.emit(models.EventConfessionCreated, models.FeedTopic, c.ForViewer(""))
		tx.result = c.ForViewer(author.ID)
	}, nil
}

// EditConfession rewrites the title and content. Only the author may edit.
func (s *Store) EditConfession(ctx context.Context, actorID, confessionID, title, content string) (*models.Confession, error) {
	return result[*models.Confession](s.execute(ctx, OpEditConfession, actorID, confessionPayload{
		ConfessionID: confessionID,
		Title:        title,
		Content:      content,
	}))
}

func (s *Store) planEditConfession(tx *txn, p confessionPayload) (func(), error) {
	c, err := s.st.confession(p.ConfessionID)
	if err != nil {
		return nil, err
	}
	if c.AuthorID != tx.cmd.ActorID {
		return nil, models.NewUnauthorizedError("Only the author can edit this confession")
	}
	if err := validateConfession(&p); err != nil {
		return nil, err
	}
	return func() {
		c.Title = p.Title
		c.Content = p.Content
		c.IsEdited = true
		tx.emit(models.EventConfessionUpdated, models.FeedTopic, c.ForViewer(""))
		tx.result = c.ForViewer(tx.cmd.ActorID)
	}, nil
}

// DeleteConfession removes a confession and its comments. Only the author may delete.
func (s *Store) DeleteConfession(ctx context.Context, actorID, confessionID string) error {
	_, err := s.execute(ctx, OpDeleteConfession, actorID, idPayload{ID: confessionID})
	return err
}

func (s *Store) planDeleteConfession(tx *txn, p idPayload) (func(), error) {
	c, err := s.st.confession(p.ID)
	if err != nil {
		return nil, err
	}
	if c.AuthorID != tx.cmd.ActorID {
		return nil, models.NewUnauthorizedError("Only the author can delete this confession")
	}
	return func() {
		delete(s.st.confessions, c.ID)
		tx.emit(models.EventConfessionDeleted, models.FeedTopic, confessionDeleted{ID: c.ID})
	}, nil
}

// LikeConfession toggles the caller's like.
func (s *Store) LikeConfession(ctx context.Context, actorID, confessionID string) (*models.Confession, error) {
	return result[*models.Confession](s.execute(ctx, OpLikeConfession, actorID, idPayload{ID: confessionID}))
}

func (s *Store) planLikeConfession(tx *txn, p idPayload) (func(), error) {
	c, err := s.st.confession(p.ID)
	if err != nil {
		return nil, err
	}
	if _, err := s.st.user(tx.cmd.ActorID); err != nil {
		return nil, err
	}
	return func() {
		toggle(&c.LikedBy, tx.cmd.ActorID)
		c.Likes = len(c.LikedBy)
		tx.emit(models.EventConfessionUpdated, models.FeedTopic, c.ForViewer(""))
		tx.result = c.ForViewer(tx.cmd.ActorID)
	}, nil
}

// SaveConfession toggles the caller's bookmark.
func (s *Store) SaveConfession(ctx context.Context, actorID, confessionID string) (*models.Confession, error) {
	return result[*models.Confession](s.execute(ctx, OpSaveConfession, actorID, idPayload{ID: confessionID}))
}

func (s *Store) planSaveConfession(tx *txn, p idPayload) (func(), error) {
	c, err := s.st.confession(p.ID)
	if err != nil {
		return nil, err
	}
	if _, err := s.st.user(tx.cmd.ActorID); err != nil {
		return nil, err
	}
	return func() {
		toggle(&c.SavedBy, tx.cmd.ActorID)
		tx.result = c.ForViewer(tx.cmd.ActorID)
	}, nil
}

// AddComment comments on a confession and records the @mentions it contains.
func (s *Store) AddComment(ctx context.Context, actorID, confessionID, content string) (*models.ConfessionComment, error) {
	return result[*models.ConfessionComment](s.execute(ctx, OpAddComment, actorID, commentPayload{
		ConfessionID:   confessionID,
		Content:        content,
		NotifyMentions: s.flagEnabled(featureflags.MentionNotifications, actorID),
	}))
}

func (s *Store) planAddComment(tx *txn, p commentPayload) (func(), error) {
	author, err := s.st.user(tx.cmd.ActorID)
	if err != nil {
		return nil, err
	}
	c, err := s.st.confession(p.ConfessionID)
	if err != nil {
		return nil, err
	}
	if _, err := requireText("Comment", p.Content, models.MaxMessageContentLength); err != nil {
		return nil, err
	}
	comment := models.ConfessionComment{
		ID:             tx.nextID(),
		ConfessionID:   c.ID,
		AuthorID:       author.ID,
		AuthorUsername: author.Username,
		Content:        p.Content,
		CreatedAt:      tx.cmd.At,
		LikedBy:        models.IDSet{},
		Mentions:       extractMentions(p.Content),
	}
	return func() {
		c.Comments = append(c.Comments, comment)
		if p.NotifyMentions {
			s.notifyMentions(tx, author, c, comment.Mentions)
		}
		tx.emit(models.EventConfessionUpdated, models.FeedTopic, c.ForViewer(""))
		out := comment
		out.LikedBy = comment.LikedBy.Clone()
		out.Mentions = comment.Mentions.Clone()
		tx.result = &out
	}, nil
}

// LikeComment toggles the caller's like on a comment.
func (s *Store) LikeComment(ctx context.Context, actorID, confessionID, commentID string) (*models.ConfessionComment, error) {
	return result[*models.ConfessionComment](s.execute(ctx, OpLikeComment, actorID, commentLikePayload{
		ConfessionID: confessionID,
		CommentID:    commentID,
	}))
}

func (s *Store) planLikeComment(tx *txn, p commentLikePayload) (func(), error) {
	c, err := s.st.confession(p.ConfessionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.st.user(tx.cmd.ActorID); err != nil {
		return nil, err
	}
	idx := -1
	for i := range c.Comments {
		if c.Comments[i].ID == p.CommentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, models.NewNotFoundError("Comment", p.CommentID)
	}
	return func() {
		cm := &c.Comments[idx]
		toggle(&cm.LikedBy, tx.cmd.ActorID)
		cm.Likes = len(cm.LikedBy)
		view := c.ForViewer(tx.cmd.ActorID).Comments[idx]
		tx.result = &view
	}, nil
}

func toggle(set *models.IDSet, id string) {
	if !set.Remove(id) {
		set.Add(id)
	}
}

// Confession returns one confession as seen by viewerID.
func (s *Store) Confession(viewerID, confessionID string) (*models.Confession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.st.confession(confessionID)
	if err != nil {
		return nil, err
	}
	return c.ForViewer(viewerID), nil
}

// ConfessionFilter narrows ListConfessions. Zero values match everything.
type ConfessionFilter struct {
	Category  models.ConfessionCategory
	AuthorID  string
	SavedOnly bool
}

// ListConfessions returns the feed newest first, as seen by viewerID.
func (s *Store) ListConfessions(viewerID string, filter ConfessionFilter) []models.Confession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Confession
	for _, c := range s.st.confessions {
		if filter.Category != "" && c.Category != filter.Category {
			continue
		}
		if filter.AuthorID != "" && c.AuthorID != filter.AuthorID {
			continue
		}
		if filter.SavedOnly && !c.SavedBy.Has(viewerID) {
			continue
		}
		out = append(out, *c.ForViewer(viewerID))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
