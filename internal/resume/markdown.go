package resume

import (
	"fmt"
	"strings"
)

// Markdown renders d for preview and export.
func Markdown(d Document) string {
	var b strings.Builder

	name := d.Contact.Name
	if name == "" {
		name = d.Title
	}
	if name == "" {
		name = "Untitled résumé"
	}
	fmt.Fprintf(&b, "# %s\n\n", name)

	var contact []string
	for _, v := range []string{d.Contact.Email, d.Contact.Phone, d.Contact.Location, d.Contact.Website} {
		if v != "" {
			contact = append(contact, v)
		}
	}
	if len(contact) > 0 {
		b.WriteString(strings.Join(contact, " · "))
		b.WriteString("\n\n")
	}

	if s := strings.TrimSpace(d.Summary); s != "" {
		b.WriteString("## Summary\n\n")
		b.WriteString(s)
		b.WriteString("\n\n")
	}

	if len(d.Experience) > 0 {
		b.WriteString("## Experience\n\n")
		for _, e := range d.Experience {
			heading := strings.TrimSpace(strings.Join(nonEmpty(e.Role, e.Company), ", "))
			if heading == "" {
				heading = "Position"
			}
			fmt.Fprintf(&b, "### %s\n\n", heading)
			if period := period(e.Start, e.End); period != "" {
				fmt.Fprintf(&b, "_%s_\n\n", period)
			}
			for _, h := range e.Highlights {
				fmt.Fprintf(&b, "- %s\n", h)
			}
			if len(e.Highlights) > 0 {
				b.WriteString("\n")
			}
		}
	}

	if len(d.Education) > 0 {
		b.WriteString("## Education\n\n")
		for _, e := range d.Education {
			line := strings.Join(nonEmpty(e.Degree, e.School, e.Year), ", ")
			fmt.Fprintf(&b, "- %s\n", line)
		}
		b.WriteString("\n")
	}

	if len(d.Skills) > 0 {
		b.WriteString("## Skills\n\n")
		b.WriteString(strings.Join(d.Skills, ", "))
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func period(start, end string) string {
	switch {
	case start == "" && end == "":
		return ""
	case end == "":
		return start + " – present"
	case start == "":
		return end
	default:
		return start + " – " + end
	}
}

func nonEmpty(vals ...string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
