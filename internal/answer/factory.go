package answer

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

const (
	// EnvMode selects the generator implementation.
	EnvMode = "AQ_MODE"
	// ModeMock selects the deterministic mock generator.
	ModeMock = "MOCK"
)

// NewGenerator creates a Generator based on the AQ_MODE environment variable.
// AQ_MODE=MOCK returns the mock; anything else returns the HTTP client.
func NewGenerator(log zerolog.Logger, baseURL, apiKey, model string, timeout time.Duration) Generator {
	if os.Getenv(EnvMode) == ModeMock {
		log.Info().Msg("AQ_MODE=MOCK detected, using mock answer generator")
		return NewMockGenerator()
	}
	return NewClient(baseURL, apiKey, model, timeout)
}
