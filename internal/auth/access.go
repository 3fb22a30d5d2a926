package auth

// GroupRef identifies the company and group a person belongs to, by id, by
// name, or both.
type GroupRef struct {
	CompanyID   int64
	GroupID     int64
	CompanyName string
	GroupName   string
}

func (g GroupRef) hasIDs() bool {
	return g.CompanyID > 0 && g.GroupID > 0
}

func (g GroupRef) hasNames() bool {
	return g.CompanyName != "" && g.GroupName != ""
}

// same compares by id when both sides carry ids, otherwise by name.
func (g GroupRef) same(o GroupRef) bool {
	switch {
	case g.hasIDs() && o.hasIDs():
		return g.CompanyID == o.CompanyID && g.GroupID == o.GroupID
	case g.hasNames() && o.hasNames():
		return g.CompanyName == o.CompanyName && g.GroupName == o.GroupName
	default:
		return false
	}
}

// CanAccess reports whether a subject with role in subjectGroup may read or
// write data belonging to targetGroup. Only counselors get access, and only
// to their own group.
func CanAccess(role Role, subjectGroup, targetGroup GroupRef) bool {
	return role == RoleCounselor && subjectGroup.same(targetGroup)
}

// CanView reports whether a signed-in member may read targetGroup's roster
// and profiles. Counselors and participants can read their own group only.
func CanView(role Role, subjectGroup, targetGroup GroupRef) bool {
	return role.valid() && subjectGroup.same(targetGroup)
}
