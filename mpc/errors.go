package mpc

import "github.com/pkg/errors"

// Error taxonomy of the share scheme and protocol engine. Configuration
// errors (threshold, protocol name, sizes) are raised before any network
// activity; consistency errors (open mismatch, inconsistent shares) signal
// a faulty or malicious peer and are kept distinct from plain transport
// failures so operators can tell infrastructure from adversarial behavior.
var (
	ErrInvalidThreshold    = errors.New("mpc: invalid threshold")
	ErrInsufficientShares  = errors.New("mpc: insufficient shares")
	ErrInconsistentShares  = errors.New("mpc: inconsistent shares")
	ErrSizeMismatch        = errors.New("mpc: size mismatch")
	ErrUnsupportedProtocol = errors.New("mpc: unsupported protocol")
	ErrOpenMismatch        = errors.New("mpc: opened values disagree")
)
