package models

import (
	"slices"
	"time"
)

type Status string

const (
	StatusNew        Status = "new"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusVerified   Status = "verified"
	StatusReopened   Status = "reopened"
	StatusArchived   Status = "archived"
	StatusCanceled   Status = "canceled"
)

// Statuses lists every lifecycle state in declaration order.
var Statuses = []Status{
	StatusNew, StatusAssigned, StatusInProgress, StatusCompleted,
	StatusVerified, StatusReopened, StatusArchived, StatusCanceled,
}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal reports whether the status has no outgoing edges.
func (s Status) Terminal() bool { return s == StatusArchived || s == StatusCanceled }

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type AssigneeKind string

const (
	AssigneeInternalUser AssigneeKind = "internalUser"
	AssigneeVendor       AssigneeKind = "vendor"
)

func (k AssigneeKind) Valid() bool { return k == AssigneeInternalUser || k == AssigneeVendor }

// Request is the maintenance request aggregate. Version is the optimistic
// concurrency token; every accepted write increments it.
type Request struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Category       string        `json:"category"`
	Priority       Priority      `json:"priority"`
	Status         Status        `json:"status"`
	PropertyID     string        `json:"propertyId,omitempty"`
	UnitID         string        `json:"unitId,omitempty"`
	AssignedTo     string        `json:"assignedTo,omitempty"`
	AssignedToKind AssigneeKind  `json:"assignedToKind,omitempty"`
	AssignedBy     string        `json:"assignedBy,omitempty"`
	AssignedAt     *time.Time    `json:"assignedAt,omitempty"`
	CreatedBy      string        `json:"createdBy"`
	PublicAccess   *PublicAccess `json:"publicAccess,omitempty"`
	Media          []Media       `json:"media"`
	Comments       []Comment     `json:"comments"`
	Version        int64         `json:"version"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
	ResolvedAt     *time.Time    `json:"resolvedAt,omitempty"`
}

// PublicAccess is the public link sub-record. Only the SHA-256 digest of the
// token is kept; the raw token leaves the system exactly once, when issued.
type PublicAccess struct {
	TokenHash string     `json:"-"`
	Enabled   bool       `json:"enabled"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	IssuedBy  string     `json:"issuedBy,omitempty"`
	IssuedAt  time.Time  `json:"issuedAt"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
}

type AuthorKind string

const (
	AuthorUser   AuthorKind = "user"
	AuthorPublic AuthorKind = "public"
)

type Comment struct {
	ID         string     `json:"id"`
	RequestID  string     `json:"requestId"`
	AuthorID   string     `json:"authorId,omitempty"`
	AuthorName string     `json:"authorName,omitempty"`
	AuthorKind AuthorKind `json:"authorKind"`
	Message    string     `json:"message"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Media is a reference to a blob stored elsewhere.
type Media struct {
	ID           string     `json:"id"`
	RequestID    string     `json:"requestId"`
	URL          string     `json:"url"`
	Filename     string     `json:"filename"`
	ContentType  string     `json:"contentType,omitempty"`
	Size         int64      `json:"size"`
	UploadedBy   string     `json:"uploadedBy,omitempty"`
	UploaderKind AuthorKind `json:"uploaderKind"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Clone returns a deep copy so domain operations never alias the caller's slices.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	c := *r
	if r.PublicAccess != nil {
		pa := *r.PublicAccess
		c.PublicAccess = &pa
	}
	c.Media = slices.Clone(r.Media)
	c.Comments = slices.Clone(r.Comments)
	return &c
}
