package challenge

import "errors"

var (
	ErrChallengeNotFound = errors.New("challenge_not_found")
	ErrChallengeUsed     = errors.New("challenge_used")
	ErrChallengeExpired  = errors.New("challenge_expired")
	ErrWrongAnswer       = errors.New("wrong_answer")
)
