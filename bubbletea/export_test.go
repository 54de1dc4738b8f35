package bubbletea

// RenderContent exports renderContent for testing.
func RenderContent(m Model) string {
	return m.renderContent()
}

// Sanitize exports sanitize for testing.
func Sanitize(s string) string {
	return sanitize(s)
}
