package dto

// StatisticsResponse is the dashboard statistics payload.
type StatisticsResponse struct {
	AcademicYear          AcademicYearRef     `json:"academic_year"`
	TotalStudents         int                 `json:"total_students"`
	TotalTeachers         int                 `json:"total_teachers"`
	TotalEnrolled         int                 `json:"total_enrolled"`
	StudentsByLevel       []LevelCount        `json:"students_by_level"`
	TopSections           []SectionEnrollment `json:"top_sections"`
	SectionsWithVacancies []SectionVacancy    `json:"sections_with_vacancies"`
}

// AcademicYearRef identifies the active year the figures belong to.
type AcademicYearRef struct {
	ID   int64 `json:"id"`
	Year int   `json:"year"`
}

// LevelCount is the active enrollment count of one level.
type LevelCount struct {
	Level string `json:"level"`
	Count int    `json:"count"`
}

// SectionEnrollment ranks a section by active enrollments.
type SectionEnrollment struct {
	SectionID   int64  `json:"section_id"`
	Section     string `json:"section"`
	Grade       string `json:"grade"`
	Level       string `json:"level"`
	Enrolled    int    `json:"enrolled"`
	MaxCapacity int    `json:"max_capacity"`
}

// SectionVacancy is a section with free seats.
type SectionVacancy struct {
	SectionEnrollment
	Vacancies int `json:"vacancies"`
}
