package auth

import (
	"context"

	"github.com/noah-isme/counseling-api/internal/models"
)

// Principal kinds. Students and staff live in separate stores.
const (
	KindStudent = "student"
	KindAdmin   = "admin"
)

// Principal is the authenticated caller resolved for a request.
type Principal struct {
	ID    uint
	Kind  string
	Role  string
	Email string
	Name  string
}

// IsStudent reports whether the principal is a student.
func (p Principal) IsStudent() bool {
	return p.Kind == KindStudent
}

// IsStaff reports whether the principal is an admin or counsellor.
func (p Principal) IsStaff() bool {
	return p.Kind == KindAdmin && (p.Role == models.RoleAdmin || p.Role == models.RoleCounsellor)
}

// StudentPrincipal builds a principal from a student record.
func StudentPrincipal(student models.Student) Principal {
	return Principal{
		ID:    student.ID,
		Kind:  KindStudent,
		Role:  models.RoleStudent,
		Email: student.Email,
		Name:  student.FullName(),
	}
}

// AdminPrincipal builds a principal from a staff record.
func AdminPrincipal(admin models.Admin) Principal {
	return Principal{
		ID:    admin.ID,
		Kind:  KindAdmin,
		Role:  admin.Role,
		Email: admin.Email,
		Name:  admin.Name,
	}
}

type principalKey struct{}

// WithPrincipal stores the principal in ctx.
func WithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// FromContext returns the principal stored in ctx, if any.
func FromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	principal, ok := ctx.Value(principalKey{}).(Principal)
	return principal, ok
}
