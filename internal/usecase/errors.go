package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrRepository = errors.New("repository error")
	ErrUpstream   = errors.New("upstream error")
)

func wrapRepo(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrRepository, err)
}

func wrapUpstream(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}
