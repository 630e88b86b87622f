package auth

import "testing"

func TestMapUser(t *testing.T) {
	tests := []struct {
		name  string
		in    APIUser
		first string
		last  string
		role  Role
	}{
		{
			name:  "full name split and first role",
			in:    APIUser{ID: "1", FullName: "Grace Brewster Hopper", Roles: []APIRole{{Name: "ROLE_MANAGER"}, {Name: "ADMIN"}}},
			first: "Grace",
			last:  "Brewster Hopper",
			role:  RoleManager,
		},
		{
			name:  "explicit names win",
			in:    APIUser{ID: "2", FullName: "Ignored Name", FirstName: "Alan", LastName: "Turing", Role: "admin"},
			first: "Alan",
			last:  "Turing",
			role:  RoleAdmin,
		},
		{
			name:  "no role defaults to staff",
			in:    APIUser{ID: "3", FullName: "Linus"},
			first: "Linus",
			role:  RoleStaff,
		},
		{
			name: "unknown role defaults to staff",
			in:   APIUser{ID: "4", Roles: []APIRole{{Name: "AUDITOR"}}},
			role: RoleStaff,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := MapUser(tc.in)
			if got.FirstName != tc.first || got.LastName != tc.last {
				t.Fatalf("expected %q %q, got %q %q", tc.first, tc.last, got.FirstName, got.LastName)
			}
			if got.Role != tc.role {
				t.Fatalf("expected role %s, got %s", tc.role, got.Role)
			}
		})
	}
}

func TestUserNames(t *testing.T) {
	u := User{FirstName: "ada", LastName: "Lovelace"}
	if u.FullName() != "ada Lovelace" {
		t.Fatalf("unexpected full name %q", u.FullName())
	}
	if u.Initials() != "AL" {
		t.Fatalf("unexpected initials %q", u.Initials())
	}
}

func TestRolePermissions(t *testing.T) {
	if !RoleAdmin.Can(PermReportsRead) {
		t.Fatal("admin should read reports")
	}
	if RoleManager.Can(PermLeaveTypes) {
		t.Fatal("manager should not manage leave types")
	}
	if !RoleManager.CanReview() || RoleStaff.CanReview() {
		t.Fatal("only managers and admins review")
	}
	if !RoleStaff.Can(PermLeaveApply) {
		t.Fatal("staff should apply for leave")
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"123456", "123456", true},
		{" 123 456 ", "123456", true},
		{"123-456", "123456", true},
		{"12345", "12345", false},
		{"1234567", "1234567", false},
		{"12345a", "12345a", false},
		{"١٢٣٤٥٦", "", false},
	}
	for _, tc := range tests {
		got, ok := NormalizeCode(tc.raw)
		if ok != tc.ok {
			t.Fatalf("%q: expected ok=%v", tc.raw, tc.ok)
		}
		if tc.ok && got != tc.want {
			t.Fatalf("%q: expected %q, got %q", tc.raw, tc.want, got)
		}
	}
}
