package maintenance

import (
	"encoding/json"

	"fixit/internal/models"
)

type Operation string

const (
	OpView              Operation = "view"
	OpComment           Operation = "comment"
	OpUploadMedia       Operation = "upload_media"
	OpRemoveMedia       Operation = "remove_media"
	OpTransition        Operation = "transition"
	OpAssign            Operation = "assign"
	OpEnablePublicLink  Operation = "enable_public_link"
	OpDisablePublicLink Operation = "disable_public_link"
)

var operations = []Operation{
	OpView, OpComment, OpUploadMedia, OpRemoveMedia,
	OpTransition, OpAssign, OpEnablePublicLink, OpDisablePublicLink,
}

// OpSet is a capability set. The zero value permits nothing.
type OpSet uint16

func bit(op Operation) OpSet {
	for i, o := range operations {
		if o == op {
			return 1 << i
		}
	}
	return 0
}

func Ops(ops ...Operation) OpSet {
	var s OpSet
	for _, op := range ops {
		s |= bit(op)
	}
	return s
}

func (s OpSet) Has(op Operation) bool {
	b := bit(op)
	return b != 0 && s&b == b
}

func (s OpSet) List() []Operation {
	out := make([]Operation, 0, len(operations))
	for _, op := range operations {
		if s.Has(op) {
			out = append(out, op)
		}
	}
	return out
}

func (s OpSet) MarshalJSON() ([]byte, error) { return json.Marshal(s.List()) }

// PublicOps is everything a public-link bearer may ever do. It is a fixed
// ceiling: nothing in the underlying request can widen it.
var PublicOps = Ops(OpView, OpComment, OpUploadMedia)

var participantOps = Ops(OpView, OpComment, OpUploadMedia)

// Capabilities computes what c may do to req at this moment.
func Capabilities(c Caller, req *models.Request) OpSet {
	if req == nil {
		return 0
	}
	if c.Public {
		return PublicOps
	}
	if !c.Authenticated() {
		return 0
	}

	var s OpSet
	if c.Role.ManagerTier() {
		s = participantOps | Ops(OpRemoveMedia, OpDisablePublicLink)
		if !req.Status.Terminal() {
			s |= Ops(OpTransition, OpAssign, OpEnablePublicLink)
		}
		return s
	}
	if req.CreatedBy == c.ID {
		s |= participantOps
	}
	if isAssignee(c, req) {
		s |= participantOps
		if len(AvailableTransitions(c, req)) > 0 {
			s |= Ops(OpTransition)
		}
	}
	return s
}

// Authorize fails with ErrForbidden when op is outside the caller's set.
// The error never says which check failed.
func Authorize(c Caller, req *models.Request, op Operation) error {
	if !Capabilities(c, req).Has(op) {
		return ErrForbidden
	}
	return nil
}

// CanRemoveMedia allows manager-tier callers and the original uploader.
func CanRemoveMedia(c Caller, req *models.Request, m models.Media) bool {
	caps := Capabilities(c, req)
	if caps.Has(OpRemoveMedia) {
		return true
	}
	return caps.Has(OpUploadMedia) && !c.Public && m.UploaderKind == models.AuthorUser && m.UploadedBy == c.ID
}
