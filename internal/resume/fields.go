package resume

import (
	"fmt"
	"strings"
)

// Field is one editable value in the form. Set never mutates its argument:
// it returns the document with the new value applied.
type Field struct {
	Key       string
	Label     string
	Multiline bool
	// Group is the section heading the field renders under.
	Group string
	Get   func(Document) string
	Set   func(Document, string) Document
}

// Fields enumerates the editable fields of d in display order. Experience
// entries contribute one group of fields each, so the list depends on d.
func Fields(d Document) []Field {
	fields := []Field{
		textField("title", "Title", "Document", false,
			func(d *Document) *string { return &d.Title }),
		textField("contact.name", "Name", "Contact", false,
			func(d *Document) *string { return &d.Contact.Name }),
		textField("contact.email", "Email", "Contact", false,
			func(d *Document) *string { return &d.Contact.Email }),
		textField("contact.phone", "Phone", "Contact", false,
			func(d *Document) *string { return &d.Contact.Phone }),
		textField("contact.location", "Location", "Contact", false,
			func(d *Document) *string { return &d.Contact.Location }),
		textField("contact.website", "Website", "Contact", false,
			func(d *Document) *string { return &d.Contact.Website }),
		textField("summary", "Summary", "Summary", true,
			func(d *Document) *string { return &d.Summary }),
		listField("skills", "Skills", "Skills", ", ",
			func(d *Document) *[]string { return &d.Skills }),
	}

	for i := range d.Experience {
		group := fmt.Sprintf("Experience %d", i+1)
		prefix := fmt.Sprintf("experience.%d.", i)
		fields = append(fields,
			textField(prefix+"company", "Company", group, false,
				func(d *Document) *string { return &d.Experience[i].Company }),
			textField(prefix+"role", "Role", group, false,
				func(d *Document) *string { return &d.Experience[i].Role }),
			textField(prefix+"start", "Start", group, false,
				func(d *Document) *string { return &d.Experience[i].Start }),
			textField(prefix+"end", "End", group, false,
				func(d *Document) *string { return &d.Experience[i].End }),
			listField(prefix+"highlights", "Highlights", group, "; ",
				func(d *Document) *[]string { return &d.Experience[i].Highlights }),
		)
	}

	for i := range d.Education {
		group := fmt.Sprintf("Education %d", i+1)
		prefix := fmt.Sprintf("education.%d.", i)
		fields = append(fields,
			textField(prefix+"school", "School", group, false,
				func(d *Document) *string { return &d.Education[i].School }),
			textField(prefix+"degree", "Degree", group, false,
				func(d *Document) *string { return &d.Education[i].Degree }),
			textField(prefix+"year", "Year", group, false,
				func(d *Document) *string { return &d.Education[i].Year }),
		)
	}

	return fields
}

// FieldByKey looks a field up by its key.
func FieldByKey(d Document, key string) (Field, bool) {
	for _, f := range Fields(d) {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// textField builds a Field over the string ref locates. Set applies ref to a
// fresh clone, so the caller's document is never written.
func textField(key, label, group string, multiline bool, ref func(*Document) *string) Field {
	return Field{
		Key:       key,
		Label:     label,
		Group:     group,
		Multiline: multiline,
		Get: func(d Document) string {
			return *ref(&d)
		},
		Set: func(d Document, v string) Document {
			out := d.Clone()
			*ref(&out) = v
			return out
		},
	}
}

func listField(key, label, group, sep string, ref func(*Document) *[]string) Field {
	return Field{
		Key:   key,
		Label: label,
		Group: group,
		Get: func(d Document) string {
			return strings.Join(*ref(&d), sep)
		},
		Set: func(d Document, v string) Document {
			out := d.Clone()
			*ref(&out) = splitList(v, strings.TrimSpace(sep))
			return out
		},
	}
}

func splitList(v, sep string) []string {
	var out []string
	for _, part := range strings.Split(v, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
