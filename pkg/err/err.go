package errprocess

import (
	"errors"

	"github.com/jacoboliverbusiness-stack/endless-ai-render-service/pkg/logger"
)

// Set set err info
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}
