package identity

import (
	"github.com/google/uuid"

	"github.com/motogo-vn/motogo-payments/pkg/enums"
)

// Principal is the authenticated caller resolved from a JWT, trusted headers,
// or a whoami lookup.
type Principal struct {
	UserID     uuid.UUID       `json:"userId"`
	Role       enums.ActorRole `json:"role"`
	StationIDs []uuid.UUID     `json:"stationIds,omitempty"`
}

// CanOperateStation reports whether the principal's assignment set covers the
// station. Admins are not station-scoped.
func (p Principal) CanOperateStation(stationID uuid.UUID) bool {
	if p.Role == enums.RoleAdmin {
		return true
	}
	if p.Role != enums.RoleStaff {
		return false
	}
	for _, assigned := range p.StationIDs {
		if assigned == stationID {
			return true
		}
	}
	return false
}
