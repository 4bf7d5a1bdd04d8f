package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is an admin's access tier.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleStaff:
		return true
	}
	return false
}

// Permission is a capability recorded on an admin document. Route access is
// decided by Role.
type Permission string

const (
	PermViewOrders    Permission = "view_orders"
	PermUpdateOrders  Permission = "update_orders"
	PermManageAdmins  Permission = "manage_admins"
	PermViewAnalytics Permission = "view_analytics"
)

// AllPermissions is granted to the bootstrap admin.
var AllPermissions = []Permission{
	PermViewOrders,
	PermUpdateOrders,
	PermManageAdmins,
	PermViewAnalytics,
}

// Admin is a dashboard operator stored in the admins collection.
type Admin struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"       json:"id"`
	Email       string             `bson:"email"               json:"email"`
	Password    string             `bson:"password"            json:"-"` // bcrypt hash
	Name        string             `bson:"name"                json:"name"`
	Role        Role               `bson:"role"                json:"role"`
	IsActive    bool               `bson:"isActive"            json:"isActive"`
	LastLogin   *time.Time         `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
	Permissions []Permission       `bson:"permissions"         json:"permissions"`
	CreatedAt   time.Time          `bson:"createdAt"           json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"           json:"updatedAt"`
}

// AdminUpdate carries optional changes from the user-management endpoint.
type AdminUpdate struct {
	Name     *string `json:"name"`
	Role     *Role   `json:"role"`
	IsActive *bool   `json:"isActive"`
}
