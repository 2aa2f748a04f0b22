package student

import (
	"fmt"
	"sort"
	"strings"
)

// Course identifies an academic program by its small integer ID and
// short uppercase mnemonic.
type Course struct {
	ID   int    `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// static course table; IDs are stable and referenced by the frontend forms.
var courses = map[int]Course{
	101: {ID: 101, Code: "BEED", Name: "Bachelor of Elementary Education"},
	102: {ID: 102, Code: "BSED", Name: "Bachelor of Secondary Education"},
	103: {ID: 103, Code: "BSIT", Name: "Bachelor of Science in Information Technology"},
	104: {ID: 104, Code: "BSHM", Name: "Bachelor of Science in Hospitality Management"},
	105: {ID: 105, Code: "BSCS", Name: "Bachelor of Science in Computer Science"},
}

// CourseCode resolves a course ID to its canonical uppercase code.
// Unknown IDs get a synthesized COURSE{id} code instead of failing,
// so records registered ahead of the course table stay allocatable.
func CourseCode(courseID int) string {
	if course, ok := courses[courseID]; ok {
		return strings.ToUpper(course.Code)
	}
	return fmt.Sprintf("COURSE%d", courseID)
}

// Courses returns the course table sorted by ID.
func Courses() []Course {
	all := make([]Course, 0, len(courses))
	for _, c := range courses {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}
