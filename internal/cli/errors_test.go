package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitErrorWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := DBConnectError("connecting to database", cause)

	assert.Equal(t, "connecting to database: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestExitErrorWithoutCause(t *testing.T) {
	err := ValidationError("migration is not rollbackable", nil)
	assert.Equal(t, "migration is not rollbackable", err.Error())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"config", ConfigError("loading configuration", errors.New("bad yaml")), ExitConfig},
		{"validation", ValidationError("missing form id", nil), ExitValidation},
		{"db connect", DBConnectError("opening database", errors.New("refused")), ExitDBConnect},
		{"general", GeneralError("querying backups", nil), ExitGeneral},
		{"rewrapped", fmt.Errorf("running command: %w", ConfigError("loading configuration", nil)), ExitConfig},
		{"plain", errors.New("boom"), ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
