package rest

import "time"

// Config holds REST client configuration. The token is required; everything
// else has a workable default.
type Config struct {
	Token     string        `env:"CHAT_API_TOKEN,required"`
	BaseURL   string        `env:"CHAT_API_BASE_URL" envDefault:"https://api.chat.example.com/v1"`
	UserAgent string        `env:"CHAT_API_USER_AGENT" envDefault:"chatkit (github.com/dmitrymomot/chatkit)"`
	Timeout   time.Duration `env:"CHAT_API_TIMEOUT" envDefault:"30s"`

	// MaxDelay caps how long a request may wait for rate limit quota before
	// failing fast. Zero refuses any wait; a negative value disables the
	// cap.
	MaxDelay time.Duration `env:"CHAT_API_MAX_RATELIMIT_DELAY" envDefault:"-1s"`
}
