package controller

import (
	"github.com/plustik/kasten/internal/logger"
	"github.com/plustik/kasten/pkg/metadata"
)

// AddGroup creates a group. The acting user becomes its first admin.
func (c *Controller) AddGroup(actingUserID uint64, name string) (*metadata.Group, error) {
	if _, err := c.db.GetUser(actingUserID); err != nil {
		return nil, err
	}

	group, err := c.db.InsertNewGroup(&metadata.Group{
		Name:     name,
		AdminIDs: []uint64{actingUserID},
	})
	if err != nil {
		return nil, err
	}

	logger.Info("user %d created group %q (id %d)", actingUserID, group.Name, group.ID)
	return group, nil
}

// GetGroupInfo returns a group the acting user is a member or admin of.
func (c *Controller) GetGroupInfo(actingUserID, groupID uint64) (*metadata.Group, error) {
	group, err := c.db.GetGroup(groupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(actingUserID) && !group.HasAdmin(actingUserID) {
		return nil, forbidden(groupID, "not a member of the group")
	}
	return group, nil
}

// UpdateGroupInfo renames a group. Only admins may do so.
func (c *Controller) UpdateGroupInfo(actingUserID, groupID uint64, name string) (*metadata.Group, error) {
	return c.db.UpdateGroup(groupID, func(group *metadata.Group) error {
		if !group.HasAdmin(actingUserID) {
			return forbidden(groupID, "only admins may change the group")
		}
		group.Name = name
		return nil
	})
}

// AddMembers adds users to a group. IDs already present are skipped.
func (c *Controller) AddMembers(actingUserID, groupID uint64, userIDs ...uint64) (*metadata.Group, error) {
	return c.db.UpdateGroup(groupID, func(group *metadata.Group) error {
		if !group.HasAdmin(actingUserID) {
			return forbidden(groupID, "only admins may add members")
		}
		group.MemberIDs = appendMissing(group.MemberIDs, userIDs)
		return nil
	})
}

// AddAdmins adds admins to a group like AddMembers.
func (c *Controller) AddAdmins(actingUserID, groupID uint64, userIDs ...uint64) (*metadata.Group, error) {
	return c.db.UpdateGroup(groupID, func(group *metadata.Group) error {
		if !group.HasAdmin(actingUserID) {
			return forbidden(groupID, "only admins may add admins")
		}
		group.AdminIDs = appendMissing(group.AdminIDs, userIDs)
		return nil
	})
}

func appendMissing(ids, add []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids)+len(add))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	for _, id := range add {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
