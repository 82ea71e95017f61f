package service

import (
	"errors"

	"github.com/OmarMosad/Roulette-Panda-Bot/internal/repository"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrForbidden             = errors.New("forbidden")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrNoLinkedChannel       = errors.New("no linked channel")
	ErrNotEligible           = errors.New("not eligible")
	ErrAlreadyJoined         = errors.New("already joined")
	ErrStillCollecting       = errors.New("still collecting")
	ErrNotEnoughParticipants = errors.New("not enough participants")
	ErrAlreadyDrawn          = errors.New("already drawn")
	ErrPublishFailed         = errors.New("publish failed")
	ErrUnknownFeature        = errors.New("unknown feature")
)

func isDuplicateErr(err error) bool {
	return errors.Is(err, repository.ErrDuplicate)
}
