// Package authz holds the role predicates used by middleware and services.
package authz

import "github.com/Skotchmaster/magister_portal/internal/models"

type Action string

const (
	CreatePost   Action = "create_post"
	DeletePost   Action = "delete_post"
	React        Action = "react"
	Comment      Action = "comment"
	ListContacts Action = "list_contacts"
)

var adminOnly = map[Action]bool{
	CreatePost:   true,
	DeletePost:   true,
	ListContacts: true,
}

// Can reports whether u may perform action. Unknown actions are denied.
func Can(u *models.User, action Action) bool {
	if u == nil {
		return false
	}
	switch action {
	case React, Comment:
		return true
	}
	if adminOnly[action] {
		return u.IsAdmin()
	}
	return false
}
