package transport

import (
	"errors"
	"fmt"
)

// Step is the operation of a listener or connector that failed
type Step uint8

const (
	CreateFailed Step = iota + 1
	BindFailed
	ListenFailed
	AcceptFailed
	ConnectFailed
	InvalidPort
	SubmitFailed
)

var (
	ErrCreateFailed  = errors.New("socket creation failed")
	ErrBindFailed    = errors.New("bind failed")
	ErrListenFailed  = errors.New("listen failed")
	ErrAcceptFailed  = errors.New("accept failed")
	ErrConnectFailed = errors.New("connect failed")
	ErrInvalidPort   = errors.New("invalid port")
	ErrSubmitFailed  = errors.New("submit failed")
)

var stepErrors = map[Step]error{
	CreateFailed:  ErrCreateFailed,
	BindFailed:    ErrBindFailed,
	ListenFailed:  ErrListenFailed,
	AcceptFailed:  ErrAcceptFailed,
	ConnectFailed: ErrConnectFailed,
	InvalidPort:   ErrInvalidPort,
	SubmitFailed:  ErrSubmitFailed,
}

// Err returns the sentinel error of the step
func (s Step) Err() error {
	if err, ok := stepErrors[s]; ok {
		return err
	}
	return fmt.Errorf("unknown step %d", uint8(s))
}

func (s Step) String() string {
	return s.Err().Error()
}

// Error describes a failed listener or connector step. It matches the sentinel of its
// step with errors.Is and unwraps to the underlying cause.
type Error struct {
	Step     Step
	Endpoint string
	Err      error
}

// NewError creates an Error for step at endpoint caused by err
func NewError(step Step, endpoint string, err error) *Error {
	return &Error{Step: step, Endpoint: endpoint, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s (%s)", e.Step, e.Endpoint)
	}
	return fmt.Sprintf("%s (%s): %v", e.Step, e.Endpoint, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == e.Step.Err()
}

// StepOf returns the step of the first Error in err's chain
func StepOf(err error) (Step, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Step, true
	}
	return 0, false
}
