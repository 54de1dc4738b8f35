package parley

// Config holds the client's explicit settings. SessionID and Token are
// passed into the transport at construction time rather than looked up from
// ambient state.
type Config struct {
	BaseURL   string
	SessionID string
	Token     string
}

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:8000"

// WithDefaults returns c with empty fields filled from defaults.
func (c Config) WithDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	return c
}
