package dto

import (
	"time"

	"shamsa/internal/domain/feed"
)

type Comment struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"author_id"`
	AuthorName   string    `json:"author_name"`
	AuthorAvatar string    `json:"author_avatar,omitempty"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
}

type Post struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"author_id"`
	AuthorName   string    `json:"author_name"`
	AuthorAvatar string    `json:"author_avatar,omitempty"`
	Content      string    `json:"content"`
	ImageURL     string    `json:"image_url,omitempty"`
	Likes        []string  `json:"likes"`
	LikedByMe    bool      `json:"liked_by_me"`
	Comments     []Comment `json:"comments"`
	CreatedAt    time.Time `json:"created_at"`
}

type PostList struct {
	Items []Post `json:"items"`
}

func MapPost(post *feed.Post, viewerID string) Post {
	if post == nil {
		return Post{}
	}
	comments := make([]Comment, 0, len(post.Comments))
	for _, c := range post.Comments {
		comments = append(comments, MapComment(c))
	}
	return Post{
		ID:           post.ID,
		AuthorID:     post.AuthorID,
		AuthorName:   post.AuthorName,
		AuthorAvatar: post.AuthorAvatar,
		Content:      post.Content,
		ImageURL:     post.ImageURL,
		Likes:        emptyIfNil(post.Likes),
		LikedByMe:    viewerID != "" && post.LikedBy(viewerID),
		Comments:     comments,
		CreatedAt:    post.CreatedAt,
	}
}

func MapPostList(posts []*feed.Post, viewerID string) PostList {
	list := PostList{Items: make([]Post, 0, len(posts))}
	for _, post := range posts {
		list.Items = append(list.Items, MapPost(post, viewerID))
	}
	return list
}

func MapComment(c feed.Comment) Comment {
	return Comment{
		ID:           c.ID,
		AuthorID:     c.AuthorID,
		AuthorName:   c.AuthorName,
		AuthorAvatar: c.AuthorAvatar,
		Content:      c.Content,
		CreatedAt:    c.CreatedAt,
	}
}
