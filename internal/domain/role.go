package domain

import (
	"fmt"
	"strings"
)

// Role is the closed set of user roles.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Roles lists every role in display order.
var Roles = []Role{RoleStudent, RoleTeacher, RoleAdmin}

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleTeacher:
		return RoleTeacher, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", Invalid("unknown role %q", s)
}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// Capability is an action or view a role may be granted.
type Capability int

const (
	CapStudentDashboard Capability = iota
	CapTeacherDashboard
	CapAdminPanel
	CapScanQR
	CapCreateQR
	CapCreateClass
	CapRecordAttendance
	CapEditAttendance
	CapViewAllAttendance
	CapExportReports
	CapListStudents
	CapListTeachers
	CapManageRoles
)

var capabilityNames = map[Capability]string{
	CapStudentDashboard:  "student dashboard",
	CapTeacherDashboard:  "teacher dashboard",
	CapAdminPanel:        "admin panel",
	CapScanQR:            "scan QR",
	CapCreateQR:          "generate QR",
	CapCreateClass:       "create class",
	CapRecordAttendance:  "record attendance",
	CapEditAttendance:    "edit attendance",
	CapViewAllAttendance: "view all attendance",
	CapExportReports:     "export reports",
	CapListStudents:      "list students",
	CapListTeachers:      "list teachers",
	CapManageRoles:       "manage roles",
}

func (c Capability) String() string {
	if n, ok := capabilityNames[c]; ok {
		return n
	}
	return fmt.Sprintf("capability(%d)", int(c))
}

// Allowed is the single place where roles are mapped to capabilities.
func Allowed(r Role, c Capability) bool {
	switch r {
	case RoleStudent:
		switch c {
		case CapStudentDashboard, CapScanQR:
			return true
		}
		return false
	case RoleTeacher:
		switch c {
		case CapTeacherDashboard, CapCreateQR, CapCreateClass, CapRecordAttendance,
			CapEditAttendance, CapViewAllAttendance, CapExportReports, CapListStudents:
			return true
		}
		return false
	case RoleAdmin:
		switch c {
		case CapAdminPanel, CapCreateClass, CapRecordAttendance, CapEditAttendance,
			CapViewAllAttendance, CapExportReports, CapListStudents, CapListTeachers, CapManageRoles:
			return true
		}
		return false
	}
	return false
}

// Require returns a permission error when the role lacks the capability.
func Require(r Role, c Capability) error {
	if Allowed(r, c) {
		return nil
	}
	return Forbidden("role %s cannot %s", r, c)
}

// View is a top-level screen of the client.
type View string

const (
	ViewLogin   View = "login"
	ViewStudent View = "student"
	ViewTeacher View = "teacher"
	ViewAdmin   View = "admin"
)

// HomeView is where a role lands after login and after a denied navigation.
func HomeView(r Role) View {
	switch r {
	case RoleStudent:
		return ViewStudent
	case RoleTeacher:
		return ViewTeacher
	case RoleAdmin:
		return ViewAdmin
	}
	return ViewLogin
}

func viewCapability(v View) (Capability, bool) {
	switch v {
	case ViewStudent:
		return CapStudentDashboard, true
	case ViewTeacher:
		return CapTeacherDashboard, true
	case ViewAdmin:
		return CapAdminPanel, true
	}
	return 0, false
}

// Gate resolves a requested view. Denied requests land on the role's home view silently.
func Gate(r Role, requested View) View {
	if !r.Valid() {
		return ViewLogin
	}
	c, ok := viewCapability(requested)
	if !ok || !Allowed(r, c) {
		return HomeView(r)
	}
	return requested
}
