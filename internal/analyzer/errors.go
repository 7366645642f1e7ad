package analyzer

import (
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/errors"
)

var (
	ErrNilBuffer        = fmt.Errorf("%w: nil text buffer", apperrors.ErrInvalidInput)
	ErrAlreadyProcessed = fmt.Errorf("%w: context already processed a document", apperrors.ErrInvalidInput)
	ErrUnknownCategory  = fmt.Errorf("%w: unknown classification category", apperrors.ErrInvalidInput)
	ErrInvalidLimit     = fmt.Errorf("%w: limit must be positive", apperrors.ErrInvalidInput)
)
