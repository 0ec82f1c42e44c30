package domain

// Department is a fixed organizational unit scoping ticket visibility
// and staff assignment.
type Department string

const (
	DepartmentPlacement      Department = "PLACEMENT"
	DepartmentFinance        Department = "FINANCE"
	DepartmentAcademics      Department = "ACADEMICS"
	DepartmentLibrary        Department = "LIBRARY"
	DepartmentHostel         Department = "HOSTEL"
	DepartmentAdministration Department = "ADMINISTRATION"
)

// Departments lists every known department.
func Departments() []Department {
	return []Department{
		DepartmentPlacement,
		DepartmentFinance,
		DepartmentAcademics,
		DepartmentLibrary,
		DepartmentHostel,
		DepartmentAdministration,
	}
}

// ParseDepartment validates a department value received at the boundary.
func ParseDepartment(raw string) (Department, bool) {
	for _, d := range Departments() {
		if Department(raw) == d {
			return d, true
		}
	}
	return "", false
}
