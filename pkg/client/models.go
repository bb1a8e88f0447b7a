package client

import "time"

// Author is the public profile attached to articles, threads and comments.
type Author struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// Tag labels articles.
type Tag struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count,omitempty"`
}

// Article is a blog post as returned by the list and detail endpoints.
type Article struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	Summary      string    `json:"summary,omitempty"`
	Content      string    `json:"content,omitempty"`
	Author       Author    `json:"author"`
	Tags         []Tag     `json:"tags,omitempty"`
	LikeCount    int       `json:"like_count"`
	Liked        bool      `json:"liked"`
	CommentCount int       `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Thread is a forum discussion.
type Thread struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Category   string    `json:"category,omitempty"`
	Author     Author    `json:"author"`
	ReplyCount int       `json:"reply_count"`
	Pinned     bool      `json:"pinned"`
	Locked     bool      `json:"locked"`
	CreatedAt  time.Time `json:"created_at"`
	LastReply  time.Time `json:"last_reply_at"`
}

// Comment belongs to an article. ParentID is zero for top-level comments.
type Comment struct {
	ID        int64     `json:"id"`
	ArticleID int64     `json:"article_id"`
	ParentID  int64     `json:"parent_id,omitempty"`
	Author    Author    `json:"author"`
	Content   string    `json:"content"`
	Depth     int       `json:"depth"`
	CreatedAt time.Time `json:"created_at"`
}

// LikeStatus is the backend's answer to a like or unlike.
type LikeStatus struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

// SiteSettings is the site-wide configuration published by the backend.
// Zero values mean "not set" and are replaced by defaults in pkg/settings.
type SiteSettings struct {
	SiteTitle       string `json:"site_title"`
	PostsPerPage    int    `json:"posts_per_page"`
	MaxVisiblePages int    `json:"max_visible_pages"`
	ForumEnabled    *bool  `json:"forum_enabled,omitempty"`
	CommentsEnabled *bool  `json:"comments_enabled,omitempty"`
}
