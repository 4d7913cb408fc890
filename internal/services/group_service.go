package services

import (
	"context"
	"strings"

	"splitledger/internal/core"
	"splitledger/internal/storage"
)

type (
	UserView struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	GroupView struct {
		ID            int64  `json:"id"`
		Name          string `json:"group_name"`
		CreatedBy     int64  `json:"created_by"`
		CreatedByName string `json:"created_by_name"`
	}

	MemberView struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
)

// CreateUser registers a user. Emails are stored lowercased and must be
// unique.
func (s *LedgerService) CreateUser(ctx context.Context, name, email string) (UserView, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return UserView{}, core.ErrMissingFields
	}

	user, err := s.storage.CreateUser(ctx, name, email)
	if err != nil {
		return UserView{}, err
	}
	return UserView{ID: user.ID, Name: user.Name, Email: user.Email}, nil
}

// GetUser looks a user up by id.
func (s *LedgerService) GetUser(ctx context.Context, userID int64) (UserView, error) {
	user, err := s.storage.GetUser(ctx, userID)
	if err != nil {
		return UserView{}, err
	}
	return UserView{ID: user.ID, Name: user.Name, Email: user.Email}, nil
}

// CreateGroup creates a group with the requester as creator and first
// member.
func (s *LedgerService) CreateGroup(ctx context.Context, requesterID int64, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, core.ErrMissingFields
	}
	if _, err := s.storage.GetUser(ctx, requesterID); err != nil {
		return 0, err
	}
	group, err := s.storage.CreateGroup(ctx, name, requesterID)
	if err != nil {
		return 0, err
	}
	return group.ID, nil
}

// JoinGroup adds the requester to a group. Joining twice is a no-op; the
// returned flag reports whether a membership row was created.
func (s *LedgerService) JoinGroup(ctx context.Context, requesterID, groupID int64) (bool, error) {
	if _, err := s.storage.GetUser(ctx, requesterID); err != nil {
		return false, err
	}
	return s.storage.JoinGroup(ctx, groupID, requesterID)
}

// ListGroups returns the groups the requester belongs to.
func (s *LedgerService) ListGroups(ctx context.Context, requesterID int64) ([]GroupView, error) {
	groups, err := s.storage.ListGroupsFor(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	views := make([]GroupView, 0, len(groups))
	for _, g := range groups {
		views = append(views, groupView(g))
	}
	return views, nil
}

// GroupMembers returns the group's members. Only members may look.
func (s *LedgerService) GroupMembers(ctx context.Context, requesterID, groupID int64) ([]MemberView, error) {
	if err := s.requireMember(ctx, requesterID, groupID); err != nil {
		return nil, err
	}
	members, err := s.storage.GroupMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	views := make([]MemberView, 0, len(members))
	for _, m := range members {
		views = append(views, MemberView{ID: m.ID, Name: m.Name})
	}
	return views, nil
}

func groupView(g storage.GroupInfo) GroupView {
	return GroupView{
		ID:            g.ID,
		Name:          g.Name,
		CreatedBy:     g.CreatedBy,
		CreatedByName: g.CreatedByName,
	}
}
