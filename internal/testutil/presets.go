package testutil

// WithStandardDocuments adds three documents, the middle one deleted.
func (b *Builder) WithStandardDocuments() *Builder {
	return b.
		WithDocument("doc-backend",
			Title("Backend"), Name("Grace Hopper"), Email("grace@example.com"),
			Summary("Compilers and debugging."),
			Job("US Navy", "Rear Admiral", "Led COBOL standardization"),
			Skills("COBOL", "FLOW-MATIC")).
		WithDocument("doc-draft", Title("Draft")).
		WithDocument("doc-research",
			Title("Research"), Name("Ada Lovelace"),
			Job("Analytical Engines", "Programmer", "Published note G"),
			Degree("Home", "Mathematics", "1835")).
		WithDeleted("doc-draft")
}
