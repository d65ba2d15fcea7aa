package testutil

import "github.com/zjrosen/vitae/internal/resume"

// DocumentOption configures a document added through a Builder.
type DocumentOption func(*resume.Document)

// Title sets the document title.
func Title(title string) DocumentOption {
	return func(d *resume.Document) { d.Title = title }
}

// Name sets the contact name.
func Name(name string) DocumentOption {
	return func(d *resume.Document) { d.Contact.Name = name }
}

// Email sets the contact email.
func Email(email string) DocumentOption {
	return func(d *resume.Document) { d.Contact.Email = email }
}

// Summary sets the summary paragraph.
func Summary(summary string) DocumentOption {
	return func(d *resume.Document) { d.Summary = summary }
}

// Skills sets the skill list.
func Skills(skills ...string) DocumentOption {
	return func(d *resume.Document) { d.Skills = skills }
}

// Job appends an experience entry.
func Job(company, role string, highlights ...string) DocumentOption {
	return func(d *resume.Document) {
		d.Experience = append(d.Experience, resume.Experience{
			Company:    company,
			Role:       role,
			Highlights: highlights,
		})
	}
}

// Degree appends an education entry.
func Degree(school, degree, year string) DocumentOption {
	return func(d *resume.Document) {
		d.Education = append(d.Education, resume.Education{School: school, Degree: degree, Year: year})
	}
}
